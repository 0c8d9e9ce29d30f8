package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/axiomvault/internal/client/client"
	"github.com/dmitrijs2005/axiomvault/internal/common"
)

// Interactive input indirections, swapped in tests.
var (
	getSimpleText  = GetSimpleText
	getPassword    = GetPassword
	getNewPassword = GetNewPassword
)

var errNotOnline = errors.New("this command needs an online session, please login")

func (a *App) w() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

// report prints a user-facing description of err and returns it.
func (a *App) report(err error) error {
	var locked *client.LockedError
	switch {
	case errors.As(err, &locked):
		fmt.Fprintf(a.w(), "Account is locked, try again in %d minute(s)\n", locked.MinutesLeft)
	case errors.Is(err, client.ErrLocked):
		fmt.Fprintln(a.w(), "Account is locked, contact support")
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintln(a.w(), "Invalid credentials")
	default:
		fmt.Fprintln(a.w(), "Error:", err)
	}
	return err
}

// Register creates an account and prints the recovery key. The key is the
// only way back in after a forgotten password and is never shown again.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.w())
	if err != nil {
		return err
	}

	password, err := getNewPassword(a.w(), "Enter password", a.config.MinPasswordEntropy)
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(password)

	recoveryKey, err := a.authService.Register(ctx, userName, password)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintln(a.w(), "Account created. Your recovery key is:")
	fmt.Fprintln(a.w())
	fmt.Fprintln(a.w(), "    "+recoveryKey)
	fmt.Fprintln(a.w())
	fmt.Fprintln(a.w(), "Store it somewhere safe. It will not be shown again.")
	return nil
}

// Login tries the server first and falls back to the local cache when the
// server is unreachable.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.w())
	if err != nil {
		return err
	}

	password, err := getPassword(a.w(), "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	a.endSession()

	session, err := a.authService.OnlineLogin(ctx, userName, password)
	switch {
	case err == nil:
		log.Printf("Login successful")
		a.setTokens(true)
		a.setMode(ModeOnline)
		if acc := session.Account; acc != nil && acc.DaysLeft >= 0 {
			fmt.Fprintf(a.w(), "Plan %s, %d day(s) left\n", acc.SubscriptionPlan, acc.DaysLeft)
		}

	case errors.Is(err, client.ErrUnavailable):
		log.Printf("Server unavailable, trying offline login...")
		session, err = a.authService.OfflineLogin(ctx, userName, password)
		if err != nil {
			log.Printf("Offline login unsuccessful: %s", err.Error())
			a.setMode(ModeDisabled)
			return a.report(err)
		}
		log.Printf("Offline login successful")
		a.setMode(ModeOffline)

	default:
		return a.report(err)
	}

	a.session = session
	a.userName = userName
	return nil
}

func (a *App) endSession() {
	a.session.Wipe()
	a.session = nil
	a.userName = ""
	a.setTokens(false)
}

// Logout ends the server session and forgets the DEK. The offline cache is
// kept so the next login works without a connection.
func (a *App) Logout(ctx context.Context) error {
	a.endSession()
	return a.authService.Logout(ctx)
}

// Forget logs out and removes the offline cache.
func (a *App) Forget(ctx context.Context) error {
	if err := a.Logout(ctx); err != nil {
		return err
	}
	if err := a.authService.ClearOfflineData(ctx); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.w(), "Local data removed")
	return nil
}

// Me prints the server's view of the account.
func (a *App) Me(ctx context.Context) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}

	acc, err := a.authService.Me(ctx)
	if err != nil {
		return a.report(err)
	}

	days := "unlimited"
	if acc.DaysLeft >= 0 {
		days = fmt.Sprintf("%d", acc.DaysLeft)
	}
	fmt.Fprintf(a.w(), "Username:  %s\nID:        %s\nPlan:      %s\nDays left: %s\nQuota:     %d MB\nCreated:   %s\n",
		acc.Username, acc.ID, acc.SubscriptionPlan, days, acc.UploadLimitMB, acc.CreatedAt.Format("2006-01-02"))
	return nil
}

// ChangePassword re-wraps the vault key under a new password. Every
// session is revoked by the server, so the user has to log in again.
func (a *App) ChangePassword(ctx context.Context) error {
	if !a.isOnline() {
		return a.report(errNotOnline)
	}

	current, err := getPassword(a.w(), "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := getNewPassword(a.w(), "New password", a.config.MinPasswordEntropy)
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(next)

	if err := a.authService.ChangePassword(ctx, current, next); err != nil {
		return a.report(err)
	}

	a.endSession()
	fmt.Fprintln(a.w(), "Password changed, please login again")
	return nil
}

// Recover sets a new password using the recovery key.
func (a *App) Recover(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.w())
	if err != nil {
		return err
	}

	recoveryKey, err := getSimpleText(a.reader, "Enter recovery key", a.w())
	if err != nil {
		return err
	}

	password, err := getNewPassword(a.w(), "New password", a.config.MinPasswordEntropy)
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Recover(ctx, userName, recoveryKey, password); err != nil {
		return a.report(err)
	}

	fmt.Fprintln(a.w(), "Password reset, you can login now")
	return nil
}
