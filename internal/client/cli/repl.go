package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Forget(ctx context.Context) error
	Recover(ctx context.Context) error
	Me(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Upload(ctx context.Context, path, category string) error
	Download(ctx context.Context, id string) error
	Files(ctx context.Context, category string, page int) error
	Categories(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, username string) error
	Unlock(ctx context.Context, username string) error
	Plan(ctx context.Context, username, plan string) error
}

const (
	helpLoggedOut = "Available commands: register, login, recover, forget, exit"
	helpLoggedIn  = "Available commands: me, passwd, files [category] [page], categories, upload <path> [category], " +
		"download <id>, delete <id>, lock <user>, unlock <user>, plan <user> <plan>, logout, exit"
)

// runREPL reads one command per line from reader and dispatches it to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("vault %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "recover":
			_ = a.Recover(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "forget":
			_ = a.Forget(ctx)

		case "me":
			_ = a.Me(ctx)

		case "passwd":
			_ = a.ChangePassword(ctx)

		case "files", "l", "list":
			category, page := "", 1
			if len(args) > 0 {
				category = args[0]
			}
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					printlnFn("Usage: files [category] [page]")
					continue
				}
				page = n
			}
			_ = a.Files(ctx, category, page)

		case "categories", "cats":
			_ = a.Categories(ctx)

		case "upload":
			if len(args) == 0 {
				printlnFn("Usage: upload <path> [category]")
				continue
			}
			category := ""
			if len(args) > 1 {
				category = args[1]
			}
			_ = a.Upload(ctx, args[0], category)

		case "download":
			if len(args) != 1 {
				printlnFn("Usage: download <id>")
				continue
			}
			_ = a.Download(ctx, args[0])

		case "delete":
			if len(args) != 1 {
				printlnFn("Usage: delete <id>")
				continue
			}
			_ = a.Delete(ctx, args[0])

		case "lock":
			if len(args) != 1 {
				printlnFn("Usage: lock <user>")
				continue
			}
			_ = a.Lock(ctx, args[0])

		case "unlock":
			if len(args) != 1 {
				printlnFn("Usage: unlock <user>")
				continue
			}
			_ = a.Unlock(ctx, args[0])

		case "plan":
			if len(args) != 2 {
				printlnFn("Usage: plan <user> <FREE|STANDARD|PRO>")
				continue
			}
			_ = a.Plan(ctx, args[0], args[1])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
