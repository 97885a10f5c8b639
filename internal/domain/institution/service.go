package institution

import (
	"context"
	"fmt"
)

// maxDepth bounds the parent walk so corrupt data cannot loop forever.
const maxDepth = 64

// Service contains the business logic for the institution tree
type Service struct {
	repo Repository
}

// NewService creates a new institution service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates an institution, optionally under an existing parent
func (s *Service) Create(ctx context.Context, params CreateParams) (*Institution, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, *params.ParentID); err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
	}
	return s.repo.Create(ctx, params)
}

// Get retrieves an institution by ID
func (s *Service) Get(ctx context.Context, id string) (*Institution, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves every institution
func (s *Service) List(ctx context.Context) ([]*Institution, error) {
	return s.repo.List(ctx)
}

// SetParent moves id under parentID, or to the root when parentID is nil.
// It fails with ErrCycle when parentID is id itself or one of its descendants.
func (s *Service) SetParent(ctx context.Context, id string, parentID *string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if parentID == nil {
		return s.repo.SetParent(ctx, id, nil)
	}

	cur := parentID
	for depth := 0; cur != nil; depth++ {
		if *cur == id || depth > maxDepth {
			return ErrCycle
		}
		node, err := s.repo.GetByID(ctx, *cur)
		if err != nil {
			return fmt.Errorf("parent chain: %w", err)
		}
		cur = node.ParentID
	}
	return s.repo.SetParent(ctx, id, parentID)
}

// Delete removes an institution that has no children
func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasChildren
	}
	return s.repo.Delete(ctx, id)
}
