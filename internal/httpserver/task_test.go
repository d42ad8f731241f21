package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/task_tracker/internal/models"
)

func TestTaskRoutes_RequireAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.request(http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(http.MethodGet, "/api/v1/tasks", "not-a-valid-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskRoutes_CRUD(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner := env.registerUser("alice", "alice@example.com", "")

	rec := env.request(http.MethodPost, "/api/v1/tasks", owner.AccessToken, map[string]any{
		"title":       "write report",
		"description": "quarterly numbers",
		"priority":    "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, owner.ID, task.UserID)

	rec = env.request(http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", task.ID), owner.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(http.MethodPatch, fmt.Sprintf("/api/v1/tasks/%d", task.ID), owner.AccessToken, map[string]any{
		"completed": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.True(t, task.Completed)

	rec = env.request(http.MethodDelete, fmt.Sprintf("/api/v1/tasks/%d", task.ID), owner.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", task.ID), owner.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskRoutes_AdminCrossAccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner := env.registerUser("bob", "bob@example.com", "")
	stranger := env.registerUser("mallory", "mallory@example.com", "")
	admin := env.registerUser("boss", "boss@example.com", "admin")

	rec := env.request(http.MethodPost, "/api/v1/tasks", owner.AccessToken, map[string]any{
		"title": "private task",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))

	// Another user-role caller gets not-found, not forbidden.
	rec = env.request(http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", task.ID), stranger.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(http.MethodPatch, fmt.Sprintf("/api/v1/tasks/%d", task.ID), stranger.AccessToken, map[string]any{
		"title": "hijacked",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The admin can read and modify someone else's task.
	rec = env.request(http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", task.ID), admin.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(http.MethodPatch, fmt.Sprintf("/api/v1/tasks/%d", task.ID), admin.AccessToken, map[string]any{
		"priority": "low",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_RoleGate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.registerUser("carol", "carol@example.com", "")
	admin := env.registerUser("root", "root@example.com", "admin")

	rec := env.request(http.MethodGet, "/api/v1/admin/users", user.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(http.MethodGet, "/api/v1/admin/users", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Data []models.User `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(2), res.Meta.Total)

	// The password hash must never serialize.
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")
}
