package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/librarian/config"
	"github.com/s0up4200/librarian/filter"
	"github.com/s0up4200/librarian/service"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	svc     *service.Service
	filters *filter.Manager

	// Command flags
	identifier string
	secret     string
	mockMode   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "A command line client for the library management backend",
	Long: `librarian talks to the library management backend over HTTPS.

It can log in, browse and filter the catalogue (authors, books, copies),
manage users, groups and schedules, and lend or return copies. Use
--mock to work against an in-memory backend without a server.`,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
	SilenceUsage:       true,
}

// SetVersion sets the version reported by --version
func SetVersion(version, buildTime string) {
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// PersistentPostRunE is skipped when a command fails
		_ = shutdownApp(rootCmd, nil)
		fmt.Fprintln(os.Stderr, describeError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&identifier, "identifier", "u", "", "login identifier (default from auth.identifier)")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", "", "login secret (default from auth.secret or LIBRARIAN_AUTH_SECRET)")
	rootCmd.PersistentFlags().BoolVar(&mockMode, "mock", false, "use the in-memory mock backend")
}

// initializeApp loads the configuration and builds the service
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	if cmd.Flags().Changed("mock") && mockMode {
		cfg.API.Mode = config.ModeMock
	}
	if identifier == "" {
		identifier = cfg.Auth.Identifier
	}
	if secret == "" {
		secret = cfg.Auth.Secret
	}

	filters = filter.NewManager()
	if err := filters.RegisterFilters(cfg.Filter); err != nil {
		return err
	}

	svc, err = service.New(cfg, logger)
	if err != nil {
		return err
	}

	logger.Debug().Str("mode", svc.Mode()).Str("command", cmd.Name()).Msg("Initialised")
	return nil
}

// shutdownApp invalidates the token used by this invocation and stops the
// background pool. Safe to call more than once.
func shutdownApp(cmd *cobra.Command, args []string) error {
	if svc == nil {
		return nil
	}

	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = context.WithoutCancel(cmd.Context())
	}

	svc.Logout(ctx)
	svc.Close(ctx)
	return nil
}

// setupLogger configures the zerolog logger. Colour is only used when
// stderr is a terminal.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	fd := os.Stderr.Fd()
	terminal := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !terminal,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// await runs fn on the service pool and waits for its result
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	future, err := service.Async(svc, ctx, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return future.Wait(ctx)
}

// authenticate logs in with the configured credentials unless a session exists
func authenticate(ctx context.Context) error {
	if svc.Authenticated() {
		return nil
	}
	if identifier == "" || secret == "" {
		return fmt.Errorf("credentials required: pass --identifier and --secret or set auth.identifier and auth.secret")
	}

	_, err := await(ctx, func(ctx context.Context) (struct{}, error) {
		_, err := svc.Login(ctx, identifier, secret)
		return struct{}{}, err
	})
	return err
}
