package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/diagnexus/internal/client/models"
	"github.com/dmitrijs2005/diagnexus/internal/common"
)

func (a *App) ListUsers(ctx context.Context) error {
	users, err := a.api.ListUsers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROLE\tNAME\tEMAIL\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", u.UserID, u.Role, u.Name, u.Mail, u.IsActive)
	}
	return tw.Flush()
}

func (a *App) AddUser(ctx context.Context) error {
	var u models.NewUser
	var err error

	if u.Role, err = getSimpleText(a.reader, "Role (Admin, Doctor, Patient)", a.out); err != nil {
		return err
	}
	if u.Name, err = getSimpleText(a.reader, "Name", a.out); err != nil {
		return err
	}
	if u.Email, err = getSimpleText(a.reader, "Email", a.out); err != nil {
		return err
	}
	pw, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	u.Password = string(pw)

	acc, err := a.api.CreateUser(ctx, u)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %d created\n", acc.UserID)
	return nil
}

// optional prompts for a value; an empty answer leaves the field unset.
func (a *App) optional(prompt string) (*string, error) {
	v, err := getSimpleText(a.reader, prompt+" (empty to keep)", a.out)
	if err != nil || v == "" {
		return nil, err
	}
	return &v, nil
}

func (a *App) EditUser(ctx context.Context, args []string) error {
	id, err := a.idFromArgs(args, "Enter user id to edit")
	if err != nil {
		return err
	}

	var u models.UserUpdate
	if u.Role, err = a.optional("Role"); err != nil {
		return err
	}
	if u.Name, err = a.optional("Name"); err != nil {
		return err
	}
	if u.Email, err = a.optional("Email"); err != nil {
		return err
	}
	active, err := a.optional("Active (yes/no)")
	if err != nil {
		return err
	}
	if active != nil {
		switch strings.ToLower(*active) {
		case "y", "yes", "true":
			v := true
			u.IsActive = &v
		case "n", "no", "false":
			v := false
			u.IsActive = &v
		default:
			return fmt.Errorf("%w: answer yes or no", common.ErrorInvalidInput)
		}
	}

	acc, err := a.api.UpdateUser(ctx, id, u)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %d updated\n", acc.UserID)
	return nil
}

func (a *App) DeleteUser(ctx context.Context, args []string) error {
	id, err := a.idFromArgs(args, "Enter user id to delete")
	if err != nil {
		return err
	}
	if err := a.api.DeleteUser(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %d deleted\n", id)
	return nil
}
