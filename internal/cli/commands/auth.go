package commands

import (
	"SupplyRun/internal/cli/session"
	"SupplyRun/internal/config"
	"context"
	"fmt"
	"time"
)

type signupCmd struct{}

func (signupCmd) Name() string        { return "signup" }
func (signupCmd) Description() string { return "Create an account and sign in" }
func (signupCmd) Usage() string       { return "signup <email> [password]" }

func (signupCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	email, password, err := credentialArgs(args)
	if err != nil {
		return err
	}
	app, cleanup := openApp(ctx, cfg)
	defer cleanup()

	id, err := app.Session.SignUpWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Account created, signed in as %s\n", id.Email)
	return nil
}

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Sign in with email and password" }
func (loginCmd) Usage() string       { return "login <email> [password]" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	email, password, err := credentialArgs(args)
	if err != nil {
		return err
	}
	app, cleanup := openApp(ctx, cfg)
	defer cleanup()

	id, err := app.Session.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Signed in as %s\n", id.Email)
	return nil
}

type loginExternalCmd struct{}

func (loginExternalCmd) Name() string        { return "login-external" }
func (loginExternalCmd) Description() string { return "Sign in with an external identity token" }
func (loginExternalCmd) Usage() string       { return "login-external <id-token>" }

func (loginExternalCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	app, cleanup := openApp(ctx, cfg)
	defer cleanup()

	id, err := app.Session.SignInWithExternalCredential(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Signed in as %s\n", displayName(id))
	return nil
}

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Sign out and forget the session" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, cleanup := openApp(ctx, cfg)
	defer cleanup()

	if app.Session.Current() == nil {
		fmt.Fprintln(Out, "Not signed in")
		return nil
	}
	if err := app.Session.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Signed out")
	return nil
}

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Show the session and project" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, cleanup := openApp(ctx, cfg)
	defer cleanup()

	fmt.Fprintf(Out, "Project:  %s (%s)\n", cfg.Project.ProjectID, cfg.ServerURL)
	id := app.Session.Current()
	if id == nil {
		fmt.Fprintln(Out, "Session:  not signed in")
		return nil
	}
	fmt.Fprintf(Out, "Session:  %s via %s\n", displayName(id), id.Provider)
	fmt.Fprintf(Out, "User ID:  %s\n", id.UID)
	if !id.ExpiresAt.IsZero() {
		fmt.Fprintf(Out, "Expires:  %s\n", id.ExpiresAt.Local().Format(time.DateTime))
	}
	return nil
}

func displayName(id *session.Identity) string {
	if id.Email != "" {
		return id.Email
	}
	return id.UID
}

func init() {
	RegisterCmd(signupCmd{})
	RegisterCmd(loginCmd{})
	RegisterCmd(loginExternalCmd{})
	RegisterCmd(logoutCmd{})
	RegisterCmd(statusCmd{})
}
