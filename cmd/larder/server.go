package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/larder/internal/api"
	"github.com/kalambet/larder/internal/config"
	"github.com/kalambet/larder/internal/dispatch"
	"github.com/kalambet/larder/internal/ingest"
	"github.com/kalambet/larder/internal/ollama"
	"github.com/kalambet/larder/internal/pipeline"
	"github.com/kalambet/larder/internal/session"
	"github.com/kalambet/larder/internal/storage"
	"github.com/kalambet/larder/internal/tools"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the larder server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show larder system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP over stdin/stdout")
}

func historyPath(cfg config.Config) string {
	return filepath.Join(cfg.Storage.DataDir, "history.json")
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "larder version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	if err := ollama.EnsureReady(ctx, ollamaClient, cfg.Ollama.Model, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	registry := tools.NewRegistry(tools.Deps{
		Pantry:  store,
		Recipes: store,
		Meals:   store,
		Grocery: store,
	})
	dispatcher := dispatch.New(registry)
	assistant := pipeline.NewAssistant(ollamaClient, registry, dispatcher, pipeline.Config{
		Model:         cfg.Ollama.Model,
		MaxToolRounds: cfg.Assistant.MaxToolRounds,
	})

	handler := api.NewHandler(api.Deps{
		Store:       store,
		Tools:       registry,
		Assistant:   assistant,
		Dispatcher:  dispatcher,
		DefaultUser: cfg.Assistant.DefaultUser,
		HistoryCap:  cfg.Assistant.HistoryCap,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	worker := ingest.NewWorker(store, store, &http.Client{Timeout: 15 * time.Second}, cfg.Worker.Poll())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "larder listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Tools:     registry,
			Assistant: assistant,
			UserID:    cfg.Assistant.DefaultUser,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)

	if up, code := reachable(ctx, client, serverURL+"/health"); up && code == http.StatusOK {
		printStatus("Server", "running on port %d", cfg.Server.Port)
	} else if up {
		printStatus("Server", "error (HTTP %d)", code)
	} else {
		printStatus("Server", "stopped")
	}

	if up, _ := reachable(ctx, client, cfg.Ollama.BaseURL+"/api/version"); up {
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	} else {
		printStatus("Ollama", "not running")
	}

	printStatus("Model", "%s", cfg.Ollama.Model)
	printStatus("Tool rounds", "%d", cfg.Assistant.MaxToolRounds)

	if hist, err := session.Load(historyPath(cfg), cfg.Assistant.HistoryCap); err == nil {
		printStatus("Chat history", "%d of %d entries", hist.Len(), cfg.Assistant.HistoryCap)
	} else {
		printStatus("Chat history", "unreadable (%v)", err)
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func reachable(ctx context.Context, client *http.Client, url string) (bool, int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, 0
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, 0
	}
	resp.Body.Close()
	return true, resp.StatusCode
}
