package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/task_tracker/internal/hash"
	"github.com/Skotchmaster/task_tracker/internal/logging"
	"github.com/Skotchmaster/task_tracker/internal/models"
	"github.com/Skotchmaster/task_tracker/internal/mykafka"
	"github.com/Skotchmaster/task_tracker/internal/repo"
	"github.com/Skotchmaster/task_tracker/internal/tokens"
)

var ErrValidation = errors.New("validation error")

type AuthService struct {
	Repo          repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Producer      *mykafka.Producer
}

type AuthResult struct {
	User         models.User
	AccessToken  string
	RefreshToken string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Register(ctx context.Context, username, email, password, role string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	switch role {
	case "":
		role = "user"
	case "user", "admin":
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		return nil, err
	}

	pair, err := s.issueSession(ctx, &user)
	if err != nil {
		l.Error("register_error", "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	s.publish(ctx, map[string]interface{}{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})
	l.Info("user_registered", "user_id", user.ID)

	return &AuthResult{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.Repo.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			l.Warn("login_failed", "reason", "invalid credentials")
			return nil, err
		}
		l.Error("login_failed", "error", err)
		return nil, err
	}

	// Every login appends one more session, devices don't share tokens.
	pair, err := s.issueSession(ctx, user)
	if err != nil {
		l.Error("login_failed", "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	s.publish(ctx, map[string]interface{}{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})
	l.Info("login_successful", "user_id", user.ID)

	return &AuthResult{User: *user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Refresh redeems a refresh token exactly once. The classification of
// failures matters to callers: expired means re-authenticate, invalid means
// the token never verified, reused means the token verified but is no
// longer in the session ledger — that last case clears every session of the
// user, so a replayed stolen token also burns whatever the thief rotated to.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(rawToken, s.RefreshSecret)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			l.Warn("refresh_rejected", "reason", "expired")
		} else {
			l.Warn("refresh_rejected", "reason", "invalid signature or structure")
		}
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.Repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Don't reveal whether the id was ever valid.
			l.Warn("refresh_rejected", "reason", "unknown user")
			return nil, repo.ErrRefreshReused
		}
		return nil, err
	}

	newAccess, err := tokens.SignAccessToken(user.ID, user.Role, s.JWTSecret, s.AccessTTL)
	if err != nil {
		return nil, err
	}
	newRefresh, jti, err := tokens.SignRefreshToken(user.ID, s.RefreshSecret, s.RefreshTTL)
	if err != nil {
		return nil, err
	}

	next := models.RefreshToken{
		Token:     newRefresh,
		JTI:       jti,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.RefreshTTL).Unix(),
	}
	if err := s.Repo.RotateRefreshToken(ctx, rawToken, &next); err != nil {
		if errors.Is(err, repo.ErrRefreshReused) {
			l.Warn("refresh_reuse_detected", "user_id", user.ID, "jti", claims.ID)
			s.publish(ctx, map[string]interface{}{
				"type":   "refresh_reuse_detected",
				"userID": user.ID,
			})
		}
		return nil, err
	}

	l.Info("refresh_rotated", "user_id", user.ID)
	return &TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

// LogOut removes one session. A token that is absent from every ledger is
// indistinguishable from one already logged out, so that case succeeds too.
func (s *AuthService) LogOut(ctx context.Context, rawToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	user, err := s.Repo.FindUserByRefreshToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Info("logout_noop", "reason", "token not held by any user")
			return nil
		}
		return err
	}

	if err := s.Repo.RemoveRefreshToken(ctx, rawToken); err != nil {
		return err
	}

	s.publish(ctx, map[string]interface{}{
		"type":   "user_logged_out",
		"userID": user.ID,
	})
	l.Info("logout_successful", "user_id", user.ID)
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	return s.Repo.ListUsers(ctx, offset, limit)
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := tokens.SignAccessToken(user.ID, user.Role, s.JWTSecret, s.AccessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, jti, err := tokens.SignRefreshToken(user.ID, s.RefreshSecret, s.RefreshTTL)
	if err != nil {
		return nil, err
	}

	t := models.RefreshToken{
		Token:     refreshToken,
		JTI:       jti,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.RefreshTTL).Unix(),
	}
	if err := s.Repo.AddRefreshToken(ctx, &t); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) publish(ctx context.Context, event map[string]interface{}) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	key := fmt.Sprint(event["userID"])
	if err := s.Producer.PublishEvent(pubCtx, "user_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
