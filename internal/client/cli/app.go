package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/client/client"
	"github.com/dmitrijs2005/axiomvault/internal/client/config"
	"github.com/dmitrijs2005/axiomvault/internal/client/services"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type App struct {
	config       *config.Config
	authService  services.AuthService
	fileService  services.FileService
	adminService services.AdminService
	session      *services.Session
	userName     string
	reader       *bufio.Reader
	out          io.Writer

	mu sync.Mutex
	// hasTokens is set while the server holds a session for us.
	hasTokens bool
	Mode      Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.LocalDBPath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:       c,
		authService:  services.NewAuthService(apiClient, db),
		fileService:  services.NewFileService(apiClient, db),
		adminService: services.NewAdminService(apiClient),
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) setTokens(v bool) {
	a.mu.Lock()
	a.hasTokens = v
	a.mu.Unlock()
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)
	defer a.session.Wipe()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

// isOnline reports whether the session is backed by the server.
func (a *App) isOnline() bool {
	return a.isLoggedIn() && a.mode() == ModeOnline
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(ctx)
			cancel()

			a.mu.Lock()
			canResume := a.hasTokens
			a.mu.Unlock()

			// an offline login holds no tokens; coming back needs a new login
			if err != nil {
				if a.mode() == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else if a.mode() == ModeOffline && canResume {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
