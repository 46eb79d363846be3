package users

import (
	"context"

	"github.com/gogotex/pagebuilder/pkg/logger"
)

// Service encapsulates editor-related business logic
type Service struct {
	repo EditorRepository
}

func NewService(r EditorRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates an editor using a token claims map.
// Claims without a subject are ignored.
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*Editor, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if name == "" {
		name, _ = claims["preferred_username"].(string)
	}
	if sub == "" {
		return nil, nil
	}
	return s.repo.UpsertBySub(ctx, &Editor{Sub: sub, Email: email, Name: name})
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*Editor, error) {
	return s.repo.GetBySub(ctx, sub)
}

// DisplayName resolves the name shown in "last edited by" labels. Unknown
// subjects are shown as-is.
func (s *Service) DisplayName(ctx context.Context, sub string) string {
	if sub == "" {
		return ""
	}
	e, err := s.repo.GetBySub(ctx, sub)
	if err != nil {
		logger.Warnf("lookup editor %s: %v", sub, err)
		return sub
	}
	if e == nil {
		return sub
	}
	return e.DisplayName()
}
