package repository

import (
	"context"
	"errors"

	"github.com/mr1hm/go-campus-sos/internal/models"
)

// ErrNotFound is returned when an operation targets an id that does not
// exist in the repository.
var ErrNotFound = errors.New("alert not found")

// AlertRepository persists alert records. Create assigns the record's id
// and List returns records ordered by created_at descending.
type AlertRepository interface {
	Create(ctx context.Context, a *models.Alert) error
	List(ctx context.Context) ([]models.Alert, error)
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	Resolve(ctx context.Context, id string) (*models.Alert, error)
	Delete(ctx context.Context, id string) error
	ResolvedIDs(ctx context.Context) ([]string, error)
}
