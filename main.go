package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/user/tvitter-go/auth"
	"github.com/user/tvitter-go/avatars"
	"github.com/user/tvitter-go/config"
	"github.com/user/tvitter-go/db"
	"github.com/user/tvitter-go/feed"
	"github.com/user/tvitter-go/logging"
	"github.com/user/tvitter-go/messages"
	"github.com/user/tvitter-go/popular"
	"github.com/user/tvitter-go/session"
	"github.com/user/tvitter-go/templates"
	"github.com/user/tvitter-go/users"
	"github.com/user/tvitter-go/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tvitter",
		Short:        "Tvitter, a small server-rendered social network",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// setup loads .env and the configuration and builds the logger.
func setup() (*config.AppConfig, *logging.SlogLogger, error) {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(os.Stdout, cfg.LogLevel)
	if envErr != nil {
		log.Debug(context.Background(), "no .env file loaded", "error", envErr)
	}
	return cfg, log, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			return db.RunMigrations(cfg.DB, log)
		},
	}
}

func newServeCmd() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start")
	return cmd
}

func serve(ctx context.Context, cfg *config.AppConfig, log logging.Logger, skipMigrations bool) error {
	pool, err := db.NewDBPool(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	if err := db.EnableExtensions(ctx, pool); err != nil {
		return fmt.Errorf("failed to enable extensions: %w", err)
	}
	if !skipMigrations {
		if err := db.RunMigrations(cfg.DB, log); err != nil {
			return err
		}
	}

	views, err := templates.Setup(os.DirFS(cfg.Server.ViewsDir))
	if err != nil {
		return fmt.Errorf("failed to compile views from %s: %w", cfg.Server.ViewsDir, err)
	}

	userRepo := users.NewUserRepository(pool, log)
	messageRepo := messages.NewMessageRepository(pool, log)
	sessions := session.NewManager(cfg.Auth)
	broadcaster := feed.NewBroadcaster(log)

	popularService := popular.NewService(messageRepo, cfg.Popular, log)
	popularStop := make(chan struct{})
	popularService.Start(popularStop)
	defer func() {
		close(popularStop)
		popularService.Wait()
	}()

	// Left as a nil interface when uploads are disabled.
	var pictures users.PictureStore
	if cfg.Avatars.Enabled() {
		store, err := avatars.NewS3Store(ctx, cfg.Avatars, log)
		if err != nil {
			return err
		}
		pictures = store
		log.Info(ctx, "avatar uploads enabled", "bucket", cfg.Avatars.Bucket)
	}

	pages := web.NewPages(views, log, currentUserDecorator, popularService.Decorate)

	router := newRouter(routerDeps{
		log:       log,
		sessions:  sessions,
		staticDir: cfg.Server.StaticDir,
		pages:     pages,
		routes: []routeRegistrar{
			messages.NewHandlers(messageRepo, authorLookup(userRepo), pages, views, broadcaster, log),
			auth.NewHandlers(auth.NewValidator(userRepo), userRepo, sessions, pages, log),
			users.NewHandlers(userRepo, messageRepo, pictures, sessions, pages, log),
			popular.NewHandlers(popularService, pages),
		},
		streams: []routeRegistrar{feed.NewHandlers(broadcaster, log)},
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /events streams for as long as the browser stays.
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info(context.Background(), "server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info(context.Background(), "server stopped gracefully")
	return nil
}

// authorLookup adapts the user repository to the author snapshot taken for new tvits.
func authorLookup(repo *users.UserRepository) messages.AuthorLookup {
	return func(ctx context.Context, userName string) (messages.Author, error) {
		user, err := repo.GetUserByUserName(ctx, userName)
		if err != nil {
			return messages.Author{}, err
		}
		return messages.Author{UserName: user.UserName, Picture: user.Picture}, nil
	}
}
