package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/portfolio-kpi/internal/config"
	"github.com/rpggio/portfolio-kpi/internal/domain/portfolio"
	"github.com/rpggio/portfolio-kpi/internal/mcp"
	"github.com/rpggio/portfolio-kpi/internal/seed"
	"github.com/rpggio/portfolio-kpi/internal/sqlite"
	"github.com/rpggio/portfolio-kpi/internal/transport"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.ModeStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	portfolioRepo := sqlite.NewPortfolioRepository(db)
	keys := sqlite.NewAPIKeyRepository(db)

	if cfg.Seed.Path != "" {
		if err := seedTenant(context.Background(), portfolioRepo, cfg.Seed.Path, cfg.Auth.DefaultTenant, logger); err != nil {
			logger.Error("failed to seed portfolio", "path", cfg.Seed.Path, "error", err)
			os.Exit(1)
		}
	}

	svc := portfolio.NewService(portfolioRepo, cfg.Scoring.Weights(), logger)

	mcpServer := mcp.NewServer(mcp.Config{
		Portfolio:     svc,
		Resolver:      keys,
		AuthEnabled:   cfg.Auth.Enabled,
		DefaultTenant: cfg.Auth.DefaultTenant,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	switch cfg.Transport.Mode {
	case config.ModeStdio:
		runStdioMode(logger, mcpServer)
	default:
		opts := transport.Options{
			Auth:   transport.DefaultTenantMiddleware(cfg.Auth.DefaultTenant),
			Logger: logger,
		}
		if cfg.Auth.Enabled {
			opts.Auth = transport.AuthMiddleware(keys)
		}
		if cfg.Server.RateLimit > 0 {
			opts.Limiter = transport.NewTenantLimiter(cfg.Server.RateLimit, cfg.Server.Burst)
		}
		if cfg.Transport.Mode == config.ModeHTTP {
			opts.MCP = sdkmcp.NewStreamableHTTPHandler(
				func(r *http.Request) *sdkmcp.Server { return mcpServer },
				&sdkmcp.StreamableHTTPOptions{
					Stateless:      false,
					SessionTimeout: 30 * time.Minute,
				},
			)
		}
		runHTTPMode(logger, transport.NewServer(svc, opts), cfg.Server.Host, cfg.Server.Port)
	}
}

func seedTenant(ctx context.Context, repo *sqlite.PortfolioRepository, path, tenantID string, logger *slog.Logger) error {
	ds, err := seed.Load(path)
	if err != nil {
		return err
	}
	n, err := seed.Import(ctx, repo, tenantID, ds)
	if err != nil {
		return err
	}
	logger.Info("seeded portfolio", "tenant", tenantID, "projects", n)
	return nil
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, handler http.Handler, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(logger, httpServer)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func shutdown(logger *slog.Logger, server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func ensureDBDir(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a file and trims it back to its newest keepLogSizeBytes once it
// grows past maxLogSizeBytes.
type logFileWriter struct {
	path     string
	file     *os.File
	mu       sync.Mutex
	maxSize  int64
	keepSize int64
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	return newSizedLogFileWriter(path, maxLogSizeBytes, keepLogSizeBytes)
}

func newSizedLogFileWriter(path string, maxSize, keepSize int64) (*logFileWriter, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file, maxSize: maxSize, keepSize: keepSize}
	if err := writer.truncateIfNeeded(); err != nil {
		file.Close()
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= w.maxSize {
		return nil
	}

	buf := make([]byte, w.keepSize)
	n, err := w.file.ReadAt(buf, size-w.keepSize)
	if err != nil && err != io.EOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
