// Package server assembles the gophauth server: configuration and secrets,
// the database and its migrations, outbound mail, the OAuth state store,
// tracing, and the gRPC and metrics listeners. It also handles graceful
// shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/oauth"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/telemetry"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const serviceName = "gophauth"

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	tokens      *auth.TokenCodec
	dispatcher  *mailer.Dispatcher
	metrics     *metrics.Metrics

	// closers run in reverse order on shutdown.
	closers []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger, metrics: metrics.New()}

	if c.AWSSecretID != "" {
		client, err := config.NewSecretsManagerClient(ctx, c)
		if err != nil {
			return nil, err
		}
		if err := config.ApplySecrets(ctx, c, client); err != nil {
			return nil, fmt.Errorf("secrets: %w", err)
		}
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, err
	}

	sender, err := app.newSender()
	if err != nil {
		app.close()
		return nil, err
	}
	app.startMailer(sender)

	app.tokens = auth.NewTokenCodec(c.SecretKey, c.AccessTokenValidityDuration)

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMailer(app.dispatcher),
		services.WithTokenIssuer(app.tokens),
	}

	if c.GoogleEnabled() {
		states, err := app.newStateStore(ctx)
		if err != nil {
			app.close()
			return nil, err
		}
		google := oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  c.GoogleRedirect(),
			AuthURL:      c.GoogleAuthURL,
			TokenURL:     c.GoogleTokenURL,
			UserInfoURL:  c.GoogleUserInfoURL,
		})
		opts = append(opts, services.WithGoogle(google, states))
	}

	app.userService = services.NewUserService(db, rm, c, opts...)

	return app, nil
}

// newSender publishes to RabbitMQ when an AMQP URL is configured and falls
// back to logging the messages.
func (app *App) newSender() (mailer.Sender, error) {
	if app.config.AMQPURL == "" {
		app.logger.Warn(context.Background(), "AMQP not configured, emails will only be logged")
		return mailer.NewLogSender(app.logger), nil
	}

	s, err := mailer.NewAMQPSender(app.config.AMQPURL, app.config.MailQueue, app.config.MailFrom)
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}
	app.closers = append(app.closers, s.Close)
	return s, nil
}

// startMailer starts the dispatcher workers. They are stopped, after the
// queue drains, with the rest of the closers.
func (app *App) startMailer(sender mailer.Sender) {
	app.dispatcher = mailer.NewDispatcher(mailer.DispatcherConfig{
		Workers:    app.config.MailWorkers,
		BufferSize: app.config.MailBuffer,
	}, sender, app.logger)
	app.dispatcher.OnDrop = app.metrics.MailDropped
	app.closers = append(app.closers, func() error {
		app.dispatcher.Close()
		return nil
	})
}

func (app *App) newStateStore(ctx context.Context) (services.StateStore, error) {
	if app.config.RedisURL == "" {
		return oauth.NewMemoryStateStore(app.config.OAuthStateTTL), nil
	}

	client, err := oauth.DialRedis(ctx, app.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	app.closers = append(app.closers, client.Close)
	return oauth.NewRedisStateStore(client, app.config.OAuthStateTTL), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.tokens,
		app.metrics.UnaryServerInterceptor())

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.metrics.Serve(ctx, app.config.MetricsAddr, app.logger); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// drains the mail queue and releases every connection.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, app.config.OTelEndpoint)
	if err != nil {
		app.logger.Warn(ctx, "tracing disabled", "error", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "tracing shutdown", "error", err)
	}

	if err := app.close(); err != nil {
		app.logger.Error(shutdownCtx, "close", "error", err)
	}
	app.logger.Info(shutdownCtx, "App stopped")
}

func (app *App) close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
