package port

import (
	"context"
	"time"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, account domain.Account) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus, changedAt time.Time) error
}
