package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/librarian/api"
	"github.com/s0up4200/librarian/config"
	"github.com/s0up4200/librarian/mockapi"
	"github.com/s0up4200/librarian/pool"
	"github.com/s0up4200/librarian/session"
	"github.com/s0up4200/librarian/transport"
)

// logoutTimeout bounds the best-effort server notification on logout
const logoutTimeout = 10 * time.Second

// Service is the single entry point for presentation code. It owns the
// session, the backend chosen at construction and the background pool.
type Service struct {
	backend api.Backend
	session *session.Session
	pool    *pool.Pool
	mode    string
	logger  zerolog.Logger
}

// New builds a Service from cfg. The backend is selected once from
// cfg.API.Mode and never changes afterwards.
func New(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	sess := session.New()

	var backend api.Backend
	switch cfg.API.Mode {
	case config.ModeMock:
		backend = mockapi.New(sess, logger).API()
	case config.ModeHTTP, "":
		httpClient := transport.New(transport.Options{
			ConnectTimeout:     cfg.API.Timeout,
			RequestTimeout:     cfg.API.Timeout,
			TrustStorePath:     cfg.TLS.TrustStorePath,
			TrustStorePassword: cfg.TLS.TrustStorePassword,
		}, logger)

		client, err := api.NewClient(cfg.API.BaseURL, sess, logger, api.WithHTTPClient(httpClient))
		if err != nil {
			return nil, fmt.Errorf("failed to create API client: %w", err)
		}
		backend = api.NewHTTPBackend(client)
	default:
		return nil, fmt.Errorf("unknown api mode %q", cfg.API.Mode)
	}

	workers := pool.New(pool.Options{
		MinWorkers:    cfg.Pool.MinWorkers,
		MaxWorkers:    cfg.Pool.MaxWorkers,
		QueueSize:     cfg.Pool.QueueSize,
		ShutdownGrace: cfg.Pool.ShutdownGrace,
		ShutdownForce: cfg.Pool.ShutdownForce,
	}, logger)

	mode := cfg.API.Mode
	if mode == "" {
		mode = config.ModeHTTP
	}

	logger.Debug().Str("mode", mode).Str("url", cfg.API.BaseURL).Msg("Service initialised")

	return &Service{
		backend: backend,
		session: sess,
		pool:    workers,
		mode:    mode,
		logger:  logger,
	}, nil
}

// Login authenticates and stores the result in the session. The session is
// left untouched when login fails.
func (s *Service) Login(ctx context.Context, identifier, secret string) (*api.AuthResult, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, &api.ValidationError{Field: "identifier", Reason: "must not be blank"}
	}
	if secret == "" {
		return nil, &api.ValidationError{Field: "secret", Reason: "must not be blank"}
	}

	result, err := s.backend.Auth.Login(ctx, api.Credentials{Identifier: identifier, Secret: secret})
	if err != nil {
		s.logger.Debug().Err(err).Str("identifier", identifier).Msg("Login failed")
		return nil, err
	}

	s.session.Set(*result)
	s.logger.Info().
		Str("user_id", result.UserID).
		Int("role", result.Role).
		Msg("Logged in")
	return result, nil
}

// Logout clears the session and then tells the server, if there was a token
// to invalidate. The server call is best effort: failures are only logged
// and it is not cancelled together with ctx.
func (s *Service) Logout(ctx context.Context) {
	token, ok := s.session.Take()
	if !ok {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()

	if err := s.backend.Auth.Logout(notifyCtx, token); err != nil {
		s.logger.Warn().Err(err).Msg("Server logout failed, local session cleared anyway")
		return
	}
	s.logger.Info().Msg("Logged out")
}

// Authenticated reports whether a usable token is held. An expired session
// is cleared locally.
func (s *Service) Authenticated() bool {
	if s.session.Expired(time.Now()) {
		s.session.Clear()
		s.logger.Info().Msg("Session expired")
		return false
	}
	return s.session.Authenticated()
}

// Register creates an account without authenticating
func (s *Service) Register(ctx context.Context, user *api.User) (*api.User, error) {
	return s.backend.Users.Register(ctx, user)
}

// Me returns the authenticated user
func (s *Service) Me(ctx context.Context) (*api.User, error) {
	if !s.Authenticated() {
		return nil, api.ErrNoToken
	}
	return s.backend.Users.Me(ctx)
}

// Users returns the user operations
func (s *Service) Users() api.UserAPI { return s.backend.Users }

// Authors returns the author operations
func (s *Service) Authors() api.AuthorAPI { return s.backend.Authors }

// Books returns the book operations
func (s *Service) Books() api.BookAPI { return s.backend.Books }

// Copies returns the copy operations
func (s *Service) Copies() api.CopyAPI { return s.backend.Copies }

// Loans returns the loan operations
func (s *Service) Loans() api.LoanAPI { return s.backend.Loans }

// Groups returns the group operations
func (s *Service) Groups() api.GroupAPI { return s.backend.Groups }

// Schedules returns the schedule operations
func (s *Service) Schedules() api.ScheduleAPI { return s.backend.Schedules }

// Session returns the process-wide session
func (s *Service) Session() *session.Session { return s.session }

// Pool returns the background pool
func (s *Service) Pool() *pool.Pool { return s.pool }

// Mode returns the selected backend mode
func (s *Service) Mode() string { return s.mode }

// Close shuts the pool down. It blocks for at most the configured grace and
// force periods.
func (s *Service) Close(ctx context.Context) {
	s.pool.Shutdown(ctx)
}

// Async runs fn on the service pool. The context passed to fn carries the
// service session, see session.FromContext. It fails with pool.ErrRejected
// when the pool is saturated and pool.ErrStopped after Close.
func Async[T any](s *Service, ctx context.Context, fn func(context.Context) (T, error)) (*pool.Future[T], error) {
	return pool.Go(s.pool, session.NewContext(ctx, s.session), fn)
}
