package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/logger"
	"github.com/kendall-kelly/powder-coating-api/middleware"
	"github.com/kendall-kelly/powder-coating-api/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 20 * time.Second

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "powder-coating-api",
	Short: "Powder coating order lifecycle and quote negotiation API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := logger.Init(!cfg.IsProduction(), cfg.LogLevel); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ConnectDatabase(); err != nil {
			return err
		}
		defer config.CloseDB(config.GetDB())
		if err := config.Migrate(config.GetDB()); err != nil {
			return err
		}
		logger.L().Info("Database migration completed successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	log := logger.L()
	log.Info("Starting Powder Coating API server", zap.String("env", cfg.GoEnv))

	if err := config.ConnectDatabase(); err != nil {
		return err
	}
	db := config.GetDB()
	defer config.CloseDB(db)
	if err := config.Migrate(db); err != nil {
		return err
	}

	notifier, closeNotifier := buildNotifier(cfg, log)
	defer closeNotifier()
	dispatcher := services.NewDispatcher(notifier, log)
	services.InitDispatcher(dispatcher)

	if cfg.RedisURL != "" {
		feed, err := services.NewRedisChangeFeed(cfg.RedisURL, log)
		if err != nil {
			return err
		}
		defer feed.Close()
		services.InitChangeFeed(feed)
	} else {
		log.Info("REDIS_URL not set, using in-process change feed")
		services.InitChangeFeed(services.NewMemoryChangeFeed())
	}

	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			return err
		}
		services.InitFileService(s3Service)
	} else {
		log.Warn("AWS_S3_BUCKET not set, file uploads are disabled")
	}

	services.InitProvisioner(services.NewAuth0Service(cfg))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, middleware.EnsureValidToken(cfg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server is running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	dispatcher.Wait()
	log.Info("Server exited")
	return nil
}

// buildNotifier picks the email backend named by NOTIFIER
func buildNotifier(cfg *config.Config, log *zap.Logger) (services.Notifier, func()) {
	switch cfg.Notifier {
	case config.NotifierSMTP:
		return services.NewEmailNotifier(services.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}), func() {}
	case config.NotifierKafka:
		k := services.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		return k, closeQuietly(k, log)
	default:
		return services.NewLogNotifier(log), func() {}
	}
}

func closeQuietly(c io.Closer, log *zap.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}
}
