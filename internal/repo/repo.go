package repo

import (
	"errors"

	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

var (
	ErrNotFound           = errors.New("record not found")
	ErrUserAlreadyExist   = errors.New("user already exist")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRefreshReused: a signature-valid refresh token was presented but its
	// ledger row is gone, i.e. it was already rotated, logged out or revoked.
	ErrRefreshReused = errors.New("refresh token reused or revoked")
)
