// Package server is the composition root: it opens Postgres and (optionally)
// Redis, wires repositories and services, and runs the HTTP API, the gRPC ops
// endpoint and the token janitor until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/foodhub/internal/logging"
	"github.com/dmitrijs2005/foodhub/internal/server/auth"
	"github.com/dmitrijs2005/foodhub/internal/server/cache"
	"github.com/dmitrijs2005/foodhub/internal/server/config"
	"github.com/dmitrijs2005/foodhub/internal/server/httpapi"
	"github.com/dmitrijs2005/foodhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/foodhub/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/foodhub/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	rdb         *redis.Client
	blacklist   *cache.Blacklist
	repomanager repomanager.RepositoryManager
	tokens      *services.TokenService
	accounts    *services.AccountService
	media       *services.MediaService
	limiter     *httpapi.RateLimiter
}

// newSigners builds the two independent token signers.
func newSigners(c *config.Config) (*auth.Signer, *auth.Signer, error) {
	access, err := auth.NewSigner([]byte(c.AccessTokenSecret), c.AccessTokenValidityDuration, auth.WithIssuer(c.TokenIssuer))
	if err != nil {
		return nil, nil, fmt.Errorf("access signer: %w", err)
	}
	refresh, err := auth.NewSigner([]byte(c.RefreshTokenSecret), c.RefreshTokenValidityDuration, auth.WithIssuer(c.TokenIssuer))
	if err != nil {
		return nil, nil, fmt.Errorf("refresh signer: %w", err)
	}
	return access, refresh, nil
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	access, refresh, err := newSigners(c)
	if err != nil {
		db.Close()
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()

	opts := []services.TokenServiceOption{services.WithTokenLogger(logger.With("module", "tokens"))}

	var (
		rdb       *redis.Client
		blacklist *cache.Blacklist
	)
	if c.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		blacklist = cache.NewBlacklist(rdb)
		opts = append(opts, services.WithBlacklistCache(blacklist))
	}

	tokens := services.NewTokenService(db, rm, access, refresh, opts...)

	accounts, err := services.NewAccountService(db, rm, tokens, 0)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("account service: %w", err)
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		rdb:         rdb,
		blacklist:   blacklist,
		repomanager: rm,
		tokens:      tokens,
		accounts:    accounts,
		media:       services.NewMediaService(c),
		limiter:     httpapi.NewRateLimiter(c.AuthRateLimitPerMinute),
	}, nil
}

// checkBlacklist pings the revocation cache, if one is configured.
func (app *App) checkBlacklist(ctx context.Context) error {
	if app.blacklist == nil {
		return nil
	}
	return app.blacklist.Ping(ctx)
}

func (app *App) cookieTransport() httpapi.CookieTransport {
	return httpapi.CookieTransport{
		Secure:     app.config.Production(),
		SameSite:   app.config.SameSite(),
		AccessTTL:  app.config.AccessTokenValidityDuration,
		RefreshTTL: app.config.RefreshTokenValidityDuration,
	}
}

// Router wires the HTTP routes to the app's services.
func (app *App) Router() http.Handler {
	logger := app.logger.With("module", "http")
	h := httpapi.NewHandlers(app.tokens, app.accounts, app.media, app.db, app.cookieTransport(), logger)
	return httpapi.NewRouter(h, app.limiter, logger)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.HTTPAddr, app.Router(), app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.tokens, app.db)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run migrates the schema and serves until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	defer app.close(ctx)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	if err := app.checkBlacklist(ctx); err != nil {
		app.logger.Warn(ctx, "redis unavailable, blacklist checks fall back to postgres", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.tokens.RunJanitor(ctx, app.config.PruneInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.limiter.RunEvictor(ctx, 10*time.Minute)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) close(ctx context.Context) {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
}
