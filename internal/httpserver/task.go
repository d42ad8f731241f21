package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/task_tracker/internal/middleware"
	"github.com/Skotchmaster/task_tracker/internal/repo"
	"github.com/Skotchmaster/task_tracker/internal/service"
	"github.com/Skotchmaster/task_tracker/internal/util"
)

type TaskHTTP struct {
	Svc *service.TaskService
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func pageMeta(page, limit, offset int, total int64) map[string]any {
	return map[string]any{
		"page":        page,
		"size":        limit,
		"total":       total,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
		"has_prev":    page > 1,
		"has_next":    int64(offset+limit) < total,
	}
}

func taskError(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func (h *TaskHTTP) List(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	role := middleware.Role(c)

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	tasks, total, err := h.Svc.List(c.Request().Context(), userID, role, offset, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": tasks,
		"meta": pageMeta(page, limit, offset, total),
	})
}

func (h *TaskHTTP) Create(c echo.Context) error {
	userID, _ := middleware.UserID(c)

	var req service.TaskInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	task, err := h.Svc.Create(c.Request().Context(), userID, req)
	if err != nil {
		return taskError(err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (h *TaskHTTP) Get(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	role := middleware.Role(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	task, err := h.Svc.Get(c.Request().Context(), uint(id), userID, role)
	if err != nil {
		return taskError(err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *TaskHTTP) Patch(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	role := middleware.Role(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req service.TaskInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	task, err := h.Svc.Update(c.Request().Context(), uint(id), userID, role, req)
	if err != nil {
		return taskError(err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *TaskHTTP) Delete(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	role := middleware.Role(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.Svc.Delete(c.Request().Context(), uint(id), userID, role); err != nil {
		return taskError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "task deleted"})
}

func (h *TaskHTTP) Search(c echo.Context) error {
	userID, _ := middleware.UserID(c)
	role := middleware.Role(c)

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, tasks, err := h.Svc.SearchTasks(c.Request().Context(), q, userID, role, from, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "tasks": tasks})
}
