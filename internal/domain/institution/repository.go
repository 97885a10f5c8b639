package institution

import "context"

// Repository defines the interface for institution data access
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Institution, error)
	// GetByID returns ErrNotFound when id does not exist
	GetByID(ctx context.Context, id string) (*Institution, error)
	List(ctx context.Context) ([]*Institution, error)
	SetParent(ctx context.Context, id string, parentID *string) error
	CountChildren(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}
