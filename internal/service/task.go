package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/task_tracker/internal/logging"
	"github.com/Skotchmaster/task_tracker/internal/models"
	"github.com/Skotchmaster/task_tracker/internal/mykafka"
	"github.com/Skotchmaster/task_tracker/internal/repo"
	"github.com/Skotchmaster/task_tracker/internal/search"
)

type TaskService struct {
	Repo     repo.GormRepo
	Search   *search.Client
	Producer *mykafka.Producer
}

type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   *bool      `json:"completed"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority"`
}

func validPriority(p string) bool {
	switch p {
	case "low", "medium", "high":
		return true
	}
	return false
}

func (s *TaskService) Create(ctx context.Context, userID uint, in TaskInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	if !validPriority(in.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}

	task := models.Task{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    in.Priority,
		UserID:      userID,
	}
	if err := s.Repo.CreateTask(ctx, &task); err != nil {
		return nil, err
	}

	s.index(ctx, &task)
	s.publish(ctx, map[string]interface{}{
		"type":   "task_created",
		"userID": userID,
		"taskID": task.ID,
	})
	return &task, nil
}

// Get applies the admin override from the task routes: an owner sees their
// own task, an admin sees anyone's, everyone else gets not-found.
func (s *TaskService) Get(ctx context.Context, id, userID uint, role string) (*models.Task, error) {
	task, err := s.Repo.TaskOwnedBy(ctx, id, userID)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if role == "admin" {
		return s.Repo.TaskByID(ctx, id)
	}
	return nil, repo.ErrNotFound
}

func (s *TaskService) List(ctx context.Context, userID uint, role string, offset, limit int) ([]models.Task, int64, error) {
	if role == "admin" {
		return s.Repo.ListAllTasks(ctx, offset, limit)
	}
	return s.Repo.ListTasks(ctx, userID, offset, limit)
}

func (s *TaskService) Update(ctx context.Context, id, userID uint, role string, in TaskInput) (*models.Task, error) {
	task, err := s.Get(ctx, id, userID, role)
	if err != nil {
		return nil, err
	}

	if in.Title != "" {
		task.Title = in.Title
	}
	if in.Description != "" {
		task.Description = in.Description
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.Priority != "" {
		if !validPriority(in.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
		}
		task.Priority = in.Priority
	}

	if err := s.Repo.SaveTask(ctx, task); err != nil {
		return nil, err
	}

	s.index(ctx, task)
	s.publish(ctx, map[string]interface{}{
		"type":   "task_updated",
		"userID": userID,
		"taskID": task.ID,
	})
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id, userID uint, role string) error {
	task, err := s.Get(ctx, id, userID, role)
	if err != nil {
		return err
	}

	if err := s.Repo.DeleteTask(ctx, task.ID); err != nil {
		return err
	}

	if s.Search != nil {
		if err := s.Search.DeleteTask(ctx, task.ID); err != nil {
			logging.FromContext(ctx).Error("es delete error", "error", err, "task_id", task.ID)
		}
	}
	s.publish(ctx, map[string]interface{}{
		"type":   "task_deleted",
		"userID": userID,
		"taskID": task.ID,
	})
	return nil
}

func (s *TaskService) SearchTasks(ctx context.Context, query string, userID uint, role string, from, size int) (int64, []models.Task, error) {
	if s.Search == nil {
		return 0, nil, fmt.Errorf("search is not configured")
	}
	return s.Search.SearchTasks(ctx, query, userID, role == "admin", from, size)
}

// index is best effort: a search document lagging behind the DB only
// degrades search results, it must never fail the write.
func (s *TaskService) index(ctx context.Context, task *models.Task) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexTask(ctx, task); err != nil {
		logging.FromContext(ctx).Error("es index error", "error", err, "task_id", task.ID)
	}
}

func (s *TaskService) publish(ctx context.Context, event map[string]interface{}) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	key := fmt.Sprint(event["userID"])
	if err := s.Producer.PublishEvent(pubCtx, "task_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
