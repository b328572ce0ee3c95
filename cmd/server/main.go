package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meur/comparador/internal/api"
	"github.com/meur/comparador/internal/app"
	"github.com/meur/comparador/internal/auth"
	"github.com/meur/comparador/internal/config"
	"github.com/meur/comparador/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	port       string
	dbPath     string
	staticDir  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "comparador-server",
	Short: "Serve the institution indicator dashboard API",
	Long: `Serves the public dashboard (categories, items, charts) and the admin
API (create, edit, seed) backed by a SQLite document store.

Configuration is read from --config, then PORT, DB_PATH, ADMIN_EMAIL,
ADMIN_PASSWORD_HASH and LOG_LEVEL, then command-line flags.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for admin.password_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "comparador.yaml", "Config file path")
	rootCmd.Flags().StringVar(&port, "port", "", "Server port (overrides config)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.Flags().StringVar(&staticDir, "static", "", "Frontend build directory to serve at /")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if staticDir != "" {
		cfg.Server.StaticDir = staticDir
	}

	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions := auth.NewSessions(cfg.Admin.Email, cfg.Admin.PasswordHash, cfg.GetSessionTTL(), logger)
	defer sessions.Close()
	if !sessions.Enabled() {
		logger.Warn("Admin login disabled: set admin.email and admin.password_hash")
	}

	srv := api.New(a.Service, sessions, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	// Serve frontend static files (for production deployment)
	if cfg.Server.StaticDir != "" {
		dir, err := filepath.Abs(cfg.Server.StaticDir)
		if err != nil {
			return err
		}
		FileServer(srv.Router(), "/", http.Dir(dir))
		logger.Info("Serving frontend", zap.String("dir", dir))
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Comparador API starting",
			zap.String("addr", "http://localhost:"+cfg.Server.Port),
			zap.String("db", cfg.Storage.Path))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// FileServer mounts the built dashboard frontend under path.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		rctx := chi.RouteContext(req.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, req)
	})
}
