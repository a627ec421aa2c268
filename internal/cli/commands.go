package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anivault/anivault/internal/catalog"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Restore the session and serve the local API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			env, err := build(ctx, opts, os.Stderr)
			if err != nil {
				return err
			}
			return env.App.Run(ctx)
		},
	}
}

// passwordFrom prefers the flag and falls back to ANIVAULT_PASSWORD so the
// secret can stay out of shell history.
func passwordFrom(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("ANIVAULT_PASSWORD")
}

func newLoginCommand(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return oneShot(cmd, opts, "anivault login", func(ctx context.Context, env *environment) ([]string, error) {
				user, err := env.Auth.Login(ctx, email, passwordFrom(password))
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("signed in as %s (%s)", user.Username, user.Role)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or ANIVAULT_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCommand(opts *options) *cobra.Command {
	var email, password, username string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return oneShot(cmd, opts, "anivault register", func(ctx context.Context, env *environment) ([]string, error) {
				if err := env.Auth.Register(ctx, email, passwordFrom(password), username); err != nil {
					return nil, err
				}
				return []string{"registered " + email}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or ANIVAULT_PASSWORD)")
	cmd.Flags().StringVar(&username, "username", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return oneShot(cmd, opts, "anivault logout", func(ctx context.Context, env *environment) ([]string, error) {
				if err := env.Auth.Logout(ctx); err != nil {
					return nil, err
				}
				return []string{"signed out"}, nil
			})
		},
	}
}

var errNotSignedIn = errors.New("not signed in")

func newWhoamiCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the restored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return oneShot(cmd, opts, "anivault whoami", func(_ context.Context, env *environment) ([]string, error) {
				st := env.Store.Snapshot()
				if !st.Authenticated() {
					return nil, errNotSignedIn
				}
				return []string{
					"username: " + st.User.Username,
					"email: " + st.User.Email,
					"role: " + st.User.Role.String(),
				}, nil
			})
		},
	}
}

func newCatalogCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "catalog", Short: "Browse the catalog"}
	cmd.AddCommand(newCatalogListCommand(opts))
	return cmd
}

func newCatalogListCommand(opts *options) *cobra.Command {
	c := catalog.Criteria{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries matching a filter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return oneShot(cmd, opts, "anivault catalog list", func(ctx context.Context, env *environment) ([]string, error) {
				entries, err := env.Catalog.List(ctx, c)
				if err != nil {
					return nil, err
				}
				lines := make([]string, 0, len(entries)+1)
				lines = append(lines, fmt.Sprintf("%d entries", len(entries)))
				for _, e := range entries {
					lines = append(lines, fmt.Sprintf("%s  %s (%d, %s) %s", e.ID, e.Title, e.Year, e.Genre, e.Studio))
				}
				return lines, nil
			})
		},
	}
	cmd.Flags().StringVarP(&c.Query, "query", "q", "", "title substring")
	cmd.Flags().StringVar(&c.Genre, "genre", catalog.Wildcard, "genre or \"all\"")
	cmd.Flags().StringVar(&c.Year, "year", catalog.Wildcard, "year or \"all\"")
	cmd.Flags().StringVar(&c.Season, "season", catalog.Wildcard, "season or \"all\"")
	cmd.Flags().StringVar(&c.Studio, "studio", catalog.Wildcard, "studio or \"all\"")
	return cmd
}
