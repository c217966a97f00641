// Package app provides the dependency injection container that assembles the gateway.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/docstore"

	"github.com/allisson/envoy-gateway/internal/config"
	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	"github.com/allisson/envoy-gateway/internal/crypto/secretsource"
	cryptoService "github.com/allisson/envoy-gateway/internal/crypto/service"
	"github.com/allisson/envoy-gateway/internal/database"
	deviceHTTP "github.com/allisson/envoy-gateway/internal/device/http"
	deviceUseCase "github.com/allisson/envoy-gateway/internal/device/usecase"
	"github.com/allisson/envoy-gateway/internal/http"
	"github.com/allisson/envoy-gateway/internal/metrics"
)

// Container holds all application dependencies. Components are created on first access
// and cached for the lifetime of the container.
type Container struct {
	config *config.Config

	// ctx lives until Shutdown; background goroutines and readiness follow it.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger    *slog.Logger
	db        *sql.DB
	txManager database.TxManager

	// Keys
	secretSource  secretsource.MasterSecretSource
	keySet        *cryptoDomain.KeySet
	signer        cryptoService.Signer
	payloadCipher *cryptoService.FernetCipher

	// Storage
	ingestBucket   *blob.Bucket
	bootCollection *docstore.Collection
	bootRepo       deviceUseCase.BootRepository
	blobRepo       deviceUseCase.BlobRepository

	// Device
	deviceUseCase deviceUseCase.DeviceUseCase
	deviceHandler *deviceHTTP.DeviceHandler

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	secretSourceInit    sync.Once
	keySetInit          sync.Once
	signerInit          sync.Once
	payloadCipherInit   sync.Once
	ingestBucketInit    sync.Once
	bootCollectionInit  sync.Once
	bootRepoInit        sync.Once
	blobRepoInit        sync.Once
	deviceUseCaseInit   sync.Once
	deviceHandlerInit   sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger configured from LogLevel.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// once runs init a single time under key and replays its error on later calls.
func (c *Container) once(o *sync.Once, key string, init func() error) error {
	o.Do(func() {
		if err := init(); err != nil {
			c.mu.Lock()
			c.initErrors[key] = err
			c.mu.Unlock()
		}
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[key]
}

// DB returns the SQL connection used by the postgres and mysql boot stores.
func (c *Container) DB() (*sql.DB, error) {
	err := c.once(&c.dbInit, "db", func() (err error) {
		c.db, err = c.initDB()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager bound to DB.
func (c *Container) TxManager() (database.TxManager, error) {
	err := c.once(&c.txManagerInit, "txManager", func() (err error) {
		c.txManager, err = c.initTxManager()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	err := c.once(&c.metricsProviderInit, "metricsProvider", func() (err error) {
		c.metricsProvider, err = c.initMetricsProvider()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the device operation metrics; a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	err := c.once(&c.businessMetricsInit, "businessMetrics", func() (err error) {
		c.businessMetrics, err = c.initBusinessMetrics()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the gateway server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	err := c.once(&c.httpServerInit, "httpServer", func() (err error) {
		c.httpServer, err = c.initHTTPServer()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	err := c.once(&c.metricsServerInit, "metricsServer", func() (err error) {
		c.metricsServer, err = c.initMetricsServer()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown releases every initialized resource. Servers are stopped first so no request
// reaches a closed store, and the key material is cleared last.
func (c *Container) Shutdown(ctx context.Context) error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.ingestBucket != nil {
		if err := c.ingestBucket.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("ingest bucket close: %w", err))
		}
	}

	if c.bootCollection != nil {
		if err := c.bootCollection.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("boot collection close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.keySet != nil {
		c.keySet.Close()
	}

	return errors.Join(shutdownErrors...)
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initDB() (*sql.DB, error) {
	driver := c.config.BootStoreDriver
	if driver != database.DriverPostgres && driver != database.DriverMySQL {
		return nil, fmt.Errorf("boot store driver %q does not use a database", driver)
	}

	db, err := database.Connect(c.ctx, database.Config{
		Driver:             driver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	handler, err := c.DeviceHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get device handler for http server: %w", err)
	}

	signer, err := c.Signer()
	if err != nil {
		return nil, fmt.Errorf("failed to get signer for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(c.config.ServerHost, c.config.ServerPort, c.config.AppVersion, logger)
	server.SetupRouter(c.ctx, http.RouterConfig{
		DeviceHandler:           handler,
		Signer:                  signer,
		MaxBodyBytes:            c.config.MaxBodyBytes,
		MetricsProvider:         provider,
		MetricsNamespace:        c.config.MetricsNamespace,
		RateLimitEnabled:        c.config.RateLimitEnabled,
		RateLimitRequestsPerSec: c.config.RateLimitRequestsPerSec,
		RateLimitBurst:          c.config.RateLimitBurst,
		CORSEnabled:             c.config.CORSEnabled,
		CORSAllowOrigins:        c.config.CORSAllowOrigins,
	})

	c.registerReadinessChecks(server)

	return server, nil
}

// registerReadinessChecks probes the storage the device routes write to.
func (c *Container) registerReadinessChecks(server *http.Server) {
	if bucket := c.ingestBucket; bucket != nil {
		server.AddReadinessCheck("ingest_bucket", func(ctx context.Context) error {
			ok, err := bucket.IsAccessible(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("bucket not accessible")
			}
			return nil
		})
	}

	if db := c.db; db != nil {
		server.AddReadinessCheck("database", db.PingContext)
	}
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
