package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pet-wellness/internal/adapters/auth/jwtauth"
	rediscache "pet-wellness/internal/adapters/cache/redis"
	"pet-wellness/internal/adapters/changefeed/redisbus"
	"pet-wellness/internal/adapters/generation/gemini"
	"pet-wellness/internal/adapters/payments/paypal"
	fsstore "pet-wellness/internal/adapters/storage/firestore"
	pg "pet-wellness/internal/adapters/storage/postgres"
	"pet-wellness/internal/config"
	"pet-wellness/internal/platform/logger"
	"pet-wellness/internal/router"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, cleanup, err := buildOptions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	app := router.New(opts)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// sin WriteTimeout: /me/profile/stream es de larga duración
		// los requests heredan ctx para que los streams corten con la señal
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		app.Close()
		return err
	})

	return g.Wait()
}

func newLogger(cfg config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.App.Name,
	})
}

// buildOptions arma los adapters según la config. Lo opcional que no está
// configurado queda nil y el router cae a memoria o responde "not configured".
func buildOptions(ctx context.Context, cfg config.Config, log logger.Logger) (router.Options, func(), error) {
	opts := router.Options{Config: cfg, Logger: log}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch {
	case cfg.Storage.DSN != "":
		db, err := pg.Open(cfg.Storage.DSN)
		if err != nil {
			return opts, cleanup, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		opts.DB = db
	case cfg.Storage.FirestoreProjectID != "":
		fs, err := fsstore.Open(ctx, cfg.Storage.FirestoreProjectID)
		if err != nil {
			return opts, cleanup, fmt.Errorf("firestore: %w", err)
		}
		closers = append(closers, func() { _ = fs.Close() })
		opts.Firestore = fs
	}

	if cfg.Redis.Addr != "" {
		rdb, err := rediscache.Open(ctx, rediscache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// el cache es local: sin redis seguimos con memoria y hub en proceso
			log.Warn("redis unavailable, using in-memory cache", map[string]any{"error": err})
		} else {
			closers = append(closers, func() { _ = rdb.Close() })
			opts.Cache = rediscache.New(rdb, cfg.Redis.Prefix)
			opts.Bus = redisbus.New(rdb, cfg.Redis.Prefix, log)
		}
	}

	if cfg.Gemini.APIKey != "" {
		gen, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
		})
		if err != nil {
			return opts, cleanup, err
		}
		opts.Generator = gen
		log.Info("generation enabled", map[string]any{"model": gen.Model()})
	} else {
		log.Warn("GEMINI_API_KEY not set, flows will fail upstream", nil)
	}

	jwtCfg := jwtConfig(cfg)
	if jwtCfg.IsConfigured() {
		v, err := jwtauth.NewVerifier(jwtCfg)
		if err != nil {
			return opts, cleanup, err
		}
		opts.AuthVerifier = v
	} else {
		log.Warn("JWT_SECRET not set, running in dev auth mode (X-Debug-User-ID)", nil)
	}

	if cfg.PayPal.IsConfigured() {
		pp, err := paypal.NewClient(paypal.Config{
			BaseURL:  cfg.PayPal.BaseURL,
			ClientID: cfg.PayPal.ClientID,
			Secret:   cfg.PayPal.Secret,
			Timeout:  cfg.PayPal.Timeout,
		})
		if err != nil {
			return opts, cleanup, err
		}
		opts.Payments = pp
	}

	return opts, cleanup, nil
}

func jwtConfig(cfg config.Config) jwtauth.Config {
	return jwtauth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
		Leeway:   30 * time.Second,
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.Storage.DSN == "" {
		return nil, errors.New("DB_DSN is required")
	}
	return pg.Open(cfg.Storage.DSN)
}
