package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/task_tracker/internal/models"
)

func (r *GormRepo) CreateTask(ctx context.Context, t *models.Task) error {
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *GormRepo) TaskByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := r.DB.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &task, nil
}

func (r *GormRepo) TaskOwnedBy(ctx context.Context, id, userID uint) (*models.Task, error) {
	var task models.Task
	if err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &task, nil
}

func (r *GormRepo) ListTasks(ctx context.Context, userID uint, offset, limit int) ([]models.Task, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Task{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	var tasks []models.Task
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return tasks, total, nil
}

func (r *GormRepo) ListAllTasks(ctx context.Context, offset, limit int) ([]models.Task, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Task{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	var tasks []models.Task
	if err := r.DB.WithContext(ctx).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return tasks, total, nil
}

func (r *GormRepo) SaveTask(ctx context.Context, t *models.Task) error {
	if err := r.DB.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *GormRepo) DeleteTask(ctx context.Context, id uint) error {
	if err := r.DB.WithContext(ctx).Delete(&models.Task{}, id).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
