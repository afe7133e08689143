package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/diagnexus/internal/client/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	role() string
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Health(ctx context.Context) error
	ListReports(ctx context.Context, args []string) error
	Upload(ctx context.Context) error
	Download(ctx context.Context, args []string) error
	Fetch(ctx context.Context, args []string) error
	History(ctx context.Context) error
	DeleteReport(ctx context.Context, args []string) error
	Objects(ctx context.Context, args []string) error
	ListUsers(ctx context.Context) error
	AddUser(ctx context.Context) error
	EditUser(ctx context.Context, args []string) error
	DeleteUser(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: login, health, exit"
	helpUser      = "Available commands: (l)ist [userId], upload, download <id>, fetch <id>, history, health, logout, exit"
	helpAdmin     = helpUser + "\nAdmin commands: delete <id>, users, adduser, edituser <id>, deluser <id>"
)

// commands that need a session, and the subset that needs the Admin role.
var (
	authCommands = map[string]bool{
		"l": true, "list": true, "reports": true, "upload": true, "download": true,
		"fetch": true, "history": true, "logout": true,
		"delete": true, "objects": true, "users": true, "adduser": true, "edituser": true, "deluser": true,
	}
	adminCommands = map[string]bool{
		"delete": true, "objects": true, "users": true, "adduser": true, "edituser": true, "deluser": true,
	}
)

func helpFor(a execIface) string {
	switch {
	case !a.isLoggedIn():
		return helpAnonymous
	case a.role() == models.RoleAdmin:
		return helpAdmin
	default:
		return helpUser
	}
}

// runREPL reads commands line by line from reader and dispatches them to a.
// It returns on EOF or when the user types "exit" or "quit".
//
// Commands that need a session or the Admin role are refused locally; the
// server enforces the same rules. Errors from handlers are printed and the
// loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("dn %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if authCommands[cmd] && !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}
		if adminCommands[cmd] && a.role() != models.RoleAdmin {
			printlnFn("Command requires the Admin role")
			continue
		}

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpFor(a))
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "health":
			cmdErr = a.Health(ctx)
		case "l", "list", "reports":
			cmdErr = a.ListReports(ctx, args)
		case "upload":
			cmdErr = a.Upload(ctx)
		case "download":
			cmdErr = a.Download(ctx, args)
		case "fetch":
			cmdErr = a.Fetch(ctx, args)
		case "history":
			cmdErr = a.History(ctx)
		case "delete":
			cmdErr = a.DeleteReport(ctx, args)
		case "objects":
			cmdErr = a.Objects(ctx, args)
		case "users":
			cmdErr = a.ListUsers(ctx)
		case "adduser":
			cmdErr = a.AddUser(ctx)
		case "edituser":
			cmdErr = a.EditUser(ctx, args)
		case "deluser":
			cmdErr = a.DeleteUser(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
