package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRefresh is returned for unknown, expired or already rotated
// refresh tokens.
var ErrInvalidRefresh = errors.New("invalid or expired refresh token")

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service { return &Service{repo: r, now: time.Now} }

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Start stores a session for the identity in s and returns it with its
// refresh token filled in.
func (s *Service) Start(ctx context.Context, identity Session, ttl time.Duration) (*Session, error) {
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := identity
	sess.ID = uuid.NewString()
	sess.RefreshToken = refresh
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(ttl)
	if err := s.repo.Create(ctx, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Rotate consumes refresh and starts a new session for the same identity.
func (s *Service) Rotate(ctx context.Context, refresh string, ttl time.Duration) (*Session, error) {
	old, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if old == nil || old.expired(s.now().UTC()) {
		return nil, ErrInvalidRefresh
	}
	if err := s.repo.DeleteByRefresh(ctx, refresh); err != nil {
		return nil, err
	}
	return s.Start(ctx, *old, ttl)
}

func (s *Service) End(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}
