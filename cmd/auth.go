package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/librarian/api"
	"github.com/s0up4200/librarian/config"
	"github.com/s0up4200/librarian/service"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify credentials against the backend",
	RunE:  runLogin,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated user",
	RunE:  runWhoami,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend, session and catalogue status",
	Long: `Show which backend is in use and whether the session is authenticated.
When credentials are available the catalogue is summarised as well.`,
	RunE: runStatus,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log in and immediately invalidate the token",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd, whoamiCmd, statusCmd, logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := authenticate(ctx); err != nil {
		return err
	}

	snap := svc.Session().Snapshot()
	fmt.Printf("✓ Logged in as %s (%s)\n", orDash(snap.DisplayName()), roleName(snap.Role))
	if !snap.ExpiresAt.IsZero() {
		fmt.Printf("  Token expires: %s\n", snap.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := authenticate(ctx); err != nil {
		return err
	}

	me, err := await(ctx, func(ctx context.Context) (*api.User, error) {
		return svc.Me(ctx)
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", orDash(me.FullName()))
	fmt.Printf("  Identifier: %s\n", orDash(me.Identifier))
	fmt.Printf("  Email:      %s\n", orDash(me.Email))
	fmt.Printf("  Role:       %s\n", roleName(me.Role))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Printf("Backend: %s", svc.Mode())
	if svc.Mode() == config.ModeHTTP {
		fmt.Printf(" (%s)", cfg.API.BaseURL)
	}
	fmt.Println()

	if identifier == "" || secret == "" {
		fmt.Println("Session: not authenticated (no credentials configured)")
		return nil
	}
	if err := authenticate(ctx); err != nil {
		return err
	}
	fmt.Printf("Session: authenticated as %s\n", orDash(svc.Session().Snapshot().DisplayName()))

	overview, err := await(ctx, svc.Overview)
	if err != nil {
		return err
	}
	printOverview(overview)

	workers, busy, queued := svc.Pool().Stats()
	logger.Debug().Int("workers", workers).Int("busy", busy).Int("queued", queued).Msg("Pool stats")
	return nil
}

func printOverview(o *service.Overview) {
	fmt.Printf("\nCatalogue:\n")
	fmt.Printf("- Authors:   %d\n", o.Authors)
	fmt.Printf("- Books:     %d\n", o.Books)
	fmt.Printf("- Copies:    %d (%d available)\n", o.Copies, o.Available)
	fmt.Printf("- Loans:     %d (%d open, %d overdue)\n", o.Loans, o.OpenLoans, o.Overdue)
	fmt.Printf("\nCommunity:\n")
	fmt.Printf("- Users:     %d\n", o.Users)
	fmt.Printf("- Groups:    %d\n", o.Groups)
	fmt.Printf("- Schedules: %d\n", o.Schedules)
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := authenticate(ctx); err != nil {
		return err
	}

	svc.Logout(ctx)
	fmt.Println("✓ Logged out")
	return nil
}
