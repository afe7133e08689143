package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/diagnexus/internal/client/api"
	"github.com/dmitrijs2005/diagnexus/internal/common"
)

// Login prompts for credentials and authenticates against the server.
//
// On success the session is kept in memory and the mode becomes online.
// An unreachable server switches the mode to offline. The password is
// wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrUnavailable) {
			a.setMode(ctx, ModeOffline)
		}
		return err
	}

	a.setSession(s)
	a.setMode(ctx, ModeOnline)
	a.logger.Debug(ctx, "logged in", "user_id", s.UserID, "role", s.Role)
	fmt.Fprintf(a.out, "Welcome, %s (%s)\n", s.Name, s.Role)
	return nil
}

// Logout drops the in-memory session and token.
func (a *App) Logout(ctx context.Context) error {
	a.api.Logout()
	a.setSession(nil)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Health reports whether the server answers.
func (a *App) Health(ctx context.Context) error {
	if err := a.api.Health(ctx); err != nil {
		a.setMode(ctx, ModeOffline)
		return err
	}
	a.setMode(ctx, ModeOnline)
	fmt.Fprintln(a.out, "Server is up")
	return nil
}
