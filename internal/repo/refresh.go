package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/task_tracker/internal/models"
)

func (r *GormRepo) AddRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RotateRefreshToken is the one-time-use rotation step. The delete of the
// presented token doubles as an atomic remove-if-present check: of any
// number of concurrent calls racing on the same token, exactly one sees
// RowsAffected == 1 and installs the successor. A caller that finds the row
// already gone is handled as reuse, and every session of that user is
// dropped inside the same transaction before ErrRefreshReused is returned.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldToken string, next *models.RefreshToken) error {
	reused := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("token = ?", oldToken).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			reused = true
			return tx.Where("user_id = ?", next.UserID).Delete(&models.RefreshToken{}).Error
		}
		return tx.Create(next).Error
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if reused {
		return ErrRefreshReused
	}
	return nil
}

// RemoveRefreshToken deletes a single session row. Deleting a token that is
// already gone is not an error, logout is idempotent.
func (r *GormRepo) RemoveRefreshToken(ctx context.Context, token string) error {
	if err := r.DB.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.RefreshToken{}).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *GormRepo) RevokeAllRefreshTokens(ctx context.Context, userID uint) error {
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RefreshToken{}).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindUserByRefreshToken resolves the holder of a token by value, the
// lookup logout uses. No decoding of the token is involved.
func (r *GormRepo) FindUserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	var stored models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return r.UserByID(ctx, stored.UserID)
}

func (r *GormRepo) CountRefreshTokens(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}
