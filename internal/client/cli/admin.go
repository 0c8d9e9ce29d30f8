package cli

import (
	"context"
	"fmt"
)

// Lock places an administrative lock on username. Staff only.
func (a *App) Lock(ctx context.Context, username string) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}
	if err := a.adminService.Lock(ctx, username); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.w(), "Locked", username)
	return nil
}

func (a *App) Unlock(ctx context.Context, username string) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}
	if err := a.adminService.Unlock(ctx, username); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.w(), "Unlocked", username)
	return nil
}

func (a *App) Plan(ctx context.Context, username, plan string) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}
	acc, err := a.adminService.ChangePlan(ctx, username, plan)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.w(), "%s is now on %s (%d MB, %d day(s) left)\n",
		acc.Username, acc.SubscriptionPlan, acc.UploadLimitMB, acc.DaysLeft)
	return nil
}
