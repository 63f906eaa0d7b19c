package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"fieldops/internal/domain"
	"fieldops/internal/store"

	"go.uber.org/zap"
)

const sessionKeyPrefix = "session:"

// AuthService server-side sessions. Clients hold an opaque token; the store
// keeps only its sha256, mapped to the user id.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a token to the current directory record of its user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	RevokeUserSessions(ctx context.Context, userID string) error
}

type LoginResponse struct {
	Token     string       `json:"token"`
	User      *domain.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type authService struct {
	users  UserService
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewAuthService(users UserService, kv store.KV, ttl time.Duration, logger *zap.Logger) AuthService {
	return &authService{users: users, kv: kv, ttl: ttl, logger: logger}
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return sessionKeyPrefix + hex.EncodeToString(sum[:])
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	user, err := s.users.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}
	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	if err := s.kv.Set(ctx, sessionKey(token), user.UserID, s.ttl); err != nil {
		s.logger.Error("Session store failed", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, fmt.Errorf("store session: %w", err)
	}
	s.logger.Info("User logged in", zap.String("user_id", user.UserID), zap.String("role", user.Role))
	return &LoginResponse{Token: token, User: user, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.kv.Delete(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrAuth
	}
	key := sessionKey(token)
	userID, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, ErrAuth
		}
		s.logger.Error("Session lookup failed", zap.Error(err))
		return nil, fmt.Errorf("get session: %w", err)
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = s.kv.Delete(ctx, key)
			return nil, ErrAuth
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAuth
	}
	return user, nil
}

func (s *authService) RevokeUserSessions(ctx context.Context, userID string) error {
	keys, err := s.kv.ScanKeys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan sessions: %w", err)
	}
	revoked := 0
	for _, k := range keys {
		v, err := s.kv.Get(ctx, k)
		if err != nil || v != userID {
			continue
		}
		if err := s.kv.Delete(ctx, k); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		revoked++
	}
	if revoked > 0 {
		s.logger.Info("Sessions revoked", zap.String("user_id", userID), zap.Int("count", revoked))
	}
	return nil
}
