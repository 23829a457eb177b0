// ABOUTME: Entry point for the pipedrive-gateway MCP server
// ABOUTME: Loads .env and YAML config, prints the banner and runs the gateway until signaled

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/pipedrive-gateway/internal/config"
	"github.com/2389/pipedrive-gateway/internal/gateway"
	"github.com/2389/pipedrive-gateway/internal/jsonrpc"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
        _            _      _
  _ __ (_)_ __   ___| |__ _(_)_   _____    _ __ ___   ___ _ __
 | '_ \| | '_ \ / _ \ / _' | \ \ / / _ \  | '_ ' _ \ / __| '_ \
 | |_) | | |_) |  __/ (_| | |\ V /  __/  | | | | | | (__| |_) |
 | .__/|_| .__/ \___|\__,_|_| \_/ \___|  |_| |_| |_|\___| .__/
 |_|     |_|                                            |_|
`

// getConfigPath returns the path to the gateway config file.
// Priority: PIPEDRIVE_GATEWAY_CONFIG > XDG_CONFIG_HOME/pipedrive-gateway/gateway.yaml > ~/.config/pipedrive-gateway/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PIPEDRIVE_GATEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "pipedrive-gateway", "gateway.yaml")
}

// loadDotEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: pipedrive-gateway [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Start the gateway server (default)")
	fmt.Println("  health    Check gateway health")
	fmt.Println("  version   Print the version")
}

func loadConfig() (*config.Config, string, error) {
	if err := loadDotEnv(); err != nil {
		return nil, "", err
	}
	configPath := getConfigPath()
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, configPath, fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Pipedrive: %s\n", cfg.Pipedrive.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Users:     %s\n", humanize.Comma(int64(len(cfg.Users))))
	green.Print("    ▶ ")
	fmt.Printf("Limits:    %d req / %s, %s body, %s tokens per response\n",
		cfg.RateLimit.MaxRequests,
		cfg.RateLimit.Window,
		humanize.IBytes(jsonrpc.MaxRequestBodySize),
		humanize.Comma(int64(cfg.Optimizer.MaxTokensPerResponse)),
	)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}
	if cfg.Auth.AdminToken == "" {
		yellow.Println("    ! admin API disabled (no admin token configured)")
	}
	if len(cfg.Users) == 0 {
		yellow.Println("    ! no users configured; create one through the admin API")
	}

	fmt.Println()

	logger.Info("starting pipedrive-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"users", len(cfg.Users),
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	addr := cfg.Server.HTTPAddr
	if strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "127.0.0.1:" + strings.TrimPrefix(addr, "0.0.0.0:")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/health", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var health gateway.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}

	fmt.Printf("%s (%d users, %d active today)\n", health.Status, health.UserStats.TotalUsers, health.UserStats.ActiveToday)
	return nil
}
