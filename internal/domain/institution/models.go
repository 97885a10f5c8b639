package institution

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrNotFound     = errors.New("institution not found")
	ErrCycle        = errors.New("parent assignment would create a cycle")
	ErrHasChildren  = errors.New("institution has child institutions")
	ErrInvalidInput = errors.New("invalid input")
)

// Institution is a node in the organisational tree that owns bank accounts.
type Institution struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	TaxID     string    `json:"taxId"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateParams contains parameters for creating an institution
type CreateParams struct {
	Name     string
	ParentID *string
	TaxID    string
}

// Validate validates the create parameters
func (p *CreateParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Join(ErrInvalidInput, errors.New("name is required"))
	}
	if p.ParentID != nil && strings.TrimSpace(*p.ParentID) == "" {
		p.ParentID = nil
	}
	return nil
}
