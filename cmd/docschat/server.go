package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/omnidocs/docschat/internal/answer"
	"github.com/omnidocs/docschat/internal/api"
	"github.com/omnidocs/docschat/internal/chat"
	"github.com/omnidocs/docschat/internal/config"
	"github.com/omnidocs/docschat/internal/content"
	"github.com/omnidocs/docschat/internal/groq"
	"github.com/omnidocs/docschat/internal/notion"
	"github.com/omnidocs/docschat/internal/registry"
	"github.com/omnidocs/docschat/internal/relevance"
	"github.com/omnidocs/docschat/internal/selector"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docschat server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running docschat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show docschat server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also expose the engine over MCP on stdio")
}

func pidFilePath() string {
	return filepath.Join(os.TempDir(), "docschat.pid")
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "docschat version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	reg, err := registry.LoadFile(cfg.Retrieval.SourcesFile)
	if err != nil {
		return fmt.Errorf("loading topic sources: %w", err)
	}
	slog.Info("topic sources loaded", "file", cfg.Retrieval.SourcesFile, "topics", reg.Len())

	// Refuse to start if another instance already answers on this port.
	pidPath := pidFilePath()
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wire the retrieval pipeline.
	notionClient := notion.NewWithBaseURL(cfg.Notion.Token, cfg.Notion.BaseURL)
	cache := content.NewCache(cfg.Cache.TTL)
	fetcher := content.NewFetcher(notionClient, cache)
	scorer := relevance.NewScorer(cfg.Retrieval.ExcerptLimit)
	sel := selector.New(reg, fetcher, scorer, cfg.Retrieval.Threshold)

	completer := groq.NewWithBaseURL(cfg.Groq.APIKey, cfg.Groq.BaseURL, cfg.Groq.Model, cfg.Groq.Timeout)
	asm := answer.New(completer, cfg.Retrieval.Threshold, cfg.Retrieval.AnswerBelowThreshold)

	engine := chat.NewEngine(reg, sel, asm)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(engine, version),
	}

	if withMCP {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(engine, version))
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("docschat listening", "addr", addr, "topics", reg.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	pidPath := pidFilePath()
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("docschat is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop docschat (PID %d): %v", pid, err)
		os.Remove(pidPath)
		return err
	}

	printSuccess("Sent stop signal to docschat (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Model", "%s", cfg.Groq.Model)
	printStatus("Sources", "%s", cfg.Retrieval.SourcesFile)
	printStatus("Cache TTL", "%s", cfg.Cache.TTL)

	if resp != nil && resp.StatusCode == http.StatusOK {
		topicsResp, err := client.Get(serverURL + "/api/topics")
		if err == nil {
			var body struct {
				Topics []string `json:"topics"`
				Count  int      `json:"count"`
			}
			if json.NewDecoder(topicsResp.Body).Decode(&body) == nil {
				printStatus("Topics", "%d (%s)", body.Count, strings.Join(body.Topics, ", "))
			}
			topicsResp.Body.Close()
		}
	}

	return nil
}
