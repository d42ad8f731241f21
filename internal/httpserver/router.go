package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/task_tracker/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	TaskHandler *TaskHTTP
	AuthMW      *middleware.AuthMiddleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.LogOut)

	tasks := v1.Group("/tasks", d.AuthMW.RequireAuth)
	tasks.GET("", d.TaskHandler.List)
	tasks.POST("", d.TaskHandler.Create)
	tasks.GET("/search", d.TaskHandler.Search)
	tasks.GET("/:id", d.TaskHandler.Get)
	tasks.PATCH("/:id", d.TaskHandler.Patch)
	tasks.DELETE("/:id", d.TaskHandler.Delete)

	admin := v1.Group("/admin", d.AuthMW.RequireAuth, middleware.RequireRoles("admin"))
	admin.GET("/users", d.AuthHandler.ListUsers)
}
