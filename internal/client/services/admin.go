package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/client/client"
)

var plans = []string{"FREE", "STANDARD", "PRO"}

// AdminService exposes the staff-only account operations.
type AdminService interface {
	Lock(ctx context.Context, username string) error
	Unlock(ctx context.Context, username string) error
	ChangePlan(ctx context.Context, username, plan string) (*api.Account, error)
}

type adminService struct {
	client client.Client
}

func NewAdminService(client client.Client) AdminService {
	return &adminService{client: client}
}

func (s *adminService) Lock(ctx context.Context, username string) error {
	return s.client.LockAccount(ctx, username)
}

func (s *adminService) Unlock(ctx context.Context, username string) error {
	return s.client.UnlockAccount(ctx, username)
}

// ChangePlan accepts the plan name in any case.
func (s *adminService) ChangePlan(ctx context.Context, username, plan string) (*api.Account, error) {
	plan = strings.ToUpper(strings.TrimSpace(plan))
	for _, p := range plans {
		if p == plan {
			return s.client.ChangePlan(ctx, username, plan)
		}
	}
	return nil, fmt.Errorf("%w: unknown plan %q", client.ErrInvalidInput, plan)
}
