// Command privacyaudit runs the website privacy audit engine in one of
// three modes: a one-shot CLI audit printing JSON, an MCP stdio server
// exposing the audit_website tool, or an HTTP API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/auditlog"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/dbopen"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/driver"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/rodriver"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", env("PRIVACYAUDIT_CONFIG", ""), "YAML config file path")
		auditURL   = flag.String("url", "", "run one audit against this URL and print the JSON result")
		mode       = flag.String("mode", "generic", "audit mode: generic, login or signup")
		maxWaitMs  = flag.Int("max-wait-ms", 0, "dynamic page-load wait bound in milliseconds")
		mcpStdio   = flag.Bool("mcp", false, "serve the MCP audit_website tool on stdio")
		listen     = flag.String("listen", "", "serve the HTTP API on this address, e.g. :8080")
		noBrowser  = flag.Bool("no-browser", false, "skip browser automation; every audit runs the static pipeline")
		logLevel   = flag.String("log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	)
	flag.Parse()

	// Logs go to stderr so stdout stays clean for the MCP transport and
	// the one-shot JSON result.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fc, err := webaudit.LoadFileConfig(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	var factory driver.Factory
	if !*noBrowser {
		headless := true
		if fc.Browser.Headless != nil {
			headless = *fc.Browser.Headless
		}
		factory = rodriver.Factory(rodriver.Config{
			RemoteURL: fc.Browser.RemoteURL,
			Headless:  headless,
			Logger:    logger,
		})
	}

	cfg := fc.EngineConfig(factory, logger)

	if fc.HistoryDB != "" {
		db, err := dbopen.Open(fc.HistoryDB, dbopen.WithMkdirAll())
		if err != nil {
			slog.Error("history db", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store := auditlog.NewStore(db)
		if err := store.Init(); err != nil {
			slog.Error("history init", "error", err)
			os.Exit(1)
		}
		cfg.History = store
	}

	auditor := webaudit.New(cfg)

	switch {
	case *auditURL != "":
		if err := runOnce(ctx, auditor, *auditURL, *mode, *maxWaitMs); err != nil {
			slog.Error("audit", "error", err)
			os.Exit(1)
		}
	case *mcpStdio:
		if err := runMCP(ctx, auditor); err != nil {
			slog.Error("mcp server", "error", err)
			os.Exit(1)
		}
	default:
		addr := *listen
		if addr == "" {
			addr = fc.Listen
		}
		if addr == "" {
			addr = env("PORT_ADDR", ":8080")
		}
		if err := runHTTP(ctx, auditor, addr); err != nil {
			slog.Error("http server", "error", err)
			os.Exit(1)
		}
	}
}

func runOnce(ctx context.Context, a *webaudit.Auditor, url, mode string, maxWaitMs int) error {
	res, err := a.Audit(ctx, webaudit.Request{
		URL:       url,
		Mode:      webaudit.Mode(mode),
		MaxWaitMs: maxWaitMs,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runMCP(ctx context.Context, a *webaudit.Auditor) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "privacyaudit",
		Version: version,
	}, nil)
	a.RegisterMCP(srv)

	slog.Info("MCP server starting on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runHTTP(ctx context.Context, a *webaudit.Auditor, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		slog.Info("HTTP server stopped")
		return nil
	}
}

func parseLevel(s string) slog.Level {
	switch s {
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

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
