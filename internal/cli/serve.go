package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/customer"
	"github.com/vasiliy-maslov/storefront/internal/db"
	"github.com/vasiliy-maslov/storefront/internal/events"
	storeHandler "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

const (
	loginRate  = rate.Limit(1)
	loginBurst = 5
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.cfg
			if !skipMigrate {
				if err := db.Migrate(cfg.Postgres); err != nil {
					return err
				}
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations before serving")
	return cmd
}

// sessionBackend is the store chosen by configuration plus what it needs at
// health check and shutdown time.
type sessionBackend struct {
	store session.Store
	ping  func(ctx context.Context) error
	close func() error
}

func newSessionBackend(ctx context.Context, cfg *config.Config) (*sessionBackend, error) {
	secret := []byte(cfg.Session.Secret)

	if cfg.Session.Backend != config.SessionBackendRedis {
		log.Info().Msg("Using cookie session store")
		return &sessionBackend{
			store: session.NewCookieStore(secret, cfg.Session.CookieName, cfg.Session.MaxAge, cfg.Session.Secure),
			close: func() error { return nil },
		}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := session.NewRedisStore(rdb, secret, cfg.Session.CookieName, cfg.Session.MaxAge, cfg.Session.Secure)
	if err := store.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
	}

	log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis session store")
	return &sessionBackend{store: store, ping: store.Ping, close: rdb.Close}, nil
}

func newPublisher(cfg config.KafkaConfig) events.Publisher {
	if len(cfg.Brokers) == 0 {
		log.Info().Msg("No Kafka brokers configured, order events are disabled")
		return events.NopPublisher{}
	}
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("Publishing order events to Kafka")
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Brokers, cfg.Topic))
}

func runServer(ctx context.Context, cfg *config.Config) error {
	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	sessions, err := newSessionBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessions.close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session backend")
		}
	}()

	publisher := newPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}()

	catalogSvc := catalog.NewService(catalog.NewRepository(pg.Pool))
	cartSvc := cart.NewService(catalogSvc)
	orderSvc := order.NewService(order.NewRepository(pg.Pool), catalogSvc, publisher)
	customerSvc := customer.NewService(customer.NewRepository(pg.Pool))
	authSvc := auth.NewService(auth.NewRepository(pg.Pool))

	limiter := storeHandler.NewIPRateLimiter(loginRate, loginBurst, cfg.App.IdleTimeout)

	router := storeHandler.NewRouter(storeHandler.RouterConfig{
		Sessions:  sessions.store,
		Auth:      storeHandler.NewAuthHandler(authSvc, sessions.store, limiter),
		Catalog:   storeHandler.NewCatalogHandler(catalogSvc, sessions.store),
		Cart:      storeHandler.NewCartHandler(cartSvc, sessions.store),
		Orders:    storeHandler.NewOrderHandler(orderSvc, cartSvc, sessions.store),
		Customers: storeHandler.NewCustomerHandler(customerSvc),
		Health: func(ctx context.Context) error {
			if err := pg.Pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if sessions.ping != nil {
				if err := sessions.ping(ctx); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
		TrustProxy: cfg.App.TrustProxy,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  cfg.App.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stopCh)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("could not listen on %s: %w", server.Addr, err)
		}
		return nil
	case sig := <-stopCh:
		log.Info().Stringer("signal", sig).Msg("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}
