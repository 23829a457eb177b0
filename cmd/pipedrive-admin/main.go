// ABOUTME: Admin CLI for pipedrive-gateway user management
// ABOUTME: Talks to the gateway's admin HTTP API with the shared admin token

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/pipedrive-gateway/internal/admin"
)

const banner = `
        _            _                          _           _
  _ __ (_)_ __   ___| |__  __ _   __ _  __| |_ __ ___ (_)_ __
 | '_ \| | '_ \ / _ \/ _' |/ _' | / _' |/ _' | '_ ' _ \| | '_ \
 | |_) | | |_) |  __/ (_| | (_| || (_| | (_| | | | | | | | | | |
 | .__/|_| .__/ \___|\__,_|\__,_| \__,_|\__,_|_| |_| |_|_|_| |_|
 |_|     |_|
`

const requestTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	gatewayURL := getEnv("PIPEDRIVE_GATEWAY_URL", "http://localhost:8080")
	client := admin.NewClient(gatewayURL, getToken())

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var err error
	switch cmd {
	case "status":
		err = cmdStatus(ctx, client, gatewayURL)
	case "users":
		err = cmdUsers(ctx, client, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: pipedrive-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  status                  Show gateway health and user stats")
	fmt.Println("  users                   List all users")
	fmt.Println("  users list              List all users")
	fmt.Println("  users create            Create a user and print its bearer token")
	fmt.Println("  users revoke <token>    Revoke a user by bearer token")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  PIPEDRIVE_GATEWAY_URL   Gateway base URL (default: http://localhost:8080)")
	fmt.Println("  MCP_ADMIN_TOKEN         Admin token (or ~/.config/pipedrive-gateway/admin-token)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  pipedrive-admin users create --name 'Ada Lovelace' --email ada@example.com --pipedrive-token <40 hex chars>")
	fmt.Println("  pipedrive-admin users revoke mcp_3f2a...")
	fmt.Println()
}

func cmdStatus(ctx context.Context, client *admin.Client, gatewayURL string) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()

	health, err := client.Health(ctx)
	if err != nil {
		yellow.Printf("  Gateway:  ")
		color.Red("UNREACHABLE (%v)\n", err)
		return nil
	}

	green.Printf("  Gateway:  ")
	fmt.Printf("%s at %s\n", health.Status, gatewayURL)
	green.Printf("  Service:  ")
	fmt.Println(health.Service)
	green.Printf("  Users:    ")
	fmt.Printf("%s total, %s active today, average age %.1f days\n",
		humanize.Comma(int64(health.UserStats.TotalUsers)),
		humanize.Comma(int64(health.UserStats.ActiveToday)),
		health.UserStats.AverageAge,
	)

	fmt.Println()
	return nil
}

// cmdUsers handles users subcommands
func cmdUsers(ctx context.Context, client *admin.Client, args []string) error {
	if len(args) == 0 {
		return cmdUsersList(ctx, client)
	}

	switch args[0] {
	case "list":
		return cmdUsersList(ctx, client)
	case "create":
		return cmdUsersCreate(ctx, client, args[1:])
	case "revoke", "delete":
		return cmdUsersRevoke(ctx, client, args[1:])
	default:
		return fmt.Errorf("unknown users subcommand: %s", args[0])
	}
}

func cmdUsersList(ctx context.Context, client *admin.Client) error {
	resp, err := client.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Users")
	cyan.Println("  -----")

	if len(resp.Users) == 0 {
		fmt.Println("  (no users)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tEMAIL\tBEARER TOKEN\tPIPEDRIVE\tCREATED\tLAST USED")
	fmt.Fprintln(w, "  ----\t-----\t------------\t---------\t-------\t---------")

	for _, u := range resp.Users {
		lastUsed := "never"
		if u.LastUsed != nil {
			lastUsed = humanize.Time(*u.LastUsed)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(u.Name, 24),
			truncate(u.Email, 28),
			truncate(u.BearerToken, 16),
			u.UpstreamToken,
			humanize.Time(u.CreatedAt),
			lastUsed,
		)
	}
	w.Flush()

	fmt.Println()
	fmt.Printf("  %s users, %s active today\n\n",
		humanize.Comma(int64(resp.Stats.TotalUsers)),
		humanize.Comma(int64(resp.Stats.ActiveToday)),
	)
	return nil
}

func cmdUsersCreate(ctx context.Context, client *admin.Client, args []string) error {
	var req admin.CreateUserRequest

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--name", "-n":
			if i+1 < len(args) {
				req.Name = args[i+1]
				i++
			}
		case "--email", "-e":
			if i+1 < len(args) {
				req.Email = args[i+1]
				i++
			}
		case "--pipedrive-token", "-t":
			if i+1 < len(args) {
				req.UpstreamToken = args[i+1]
				i++
			}
		}
	}

	if req.Name == "" || req.Email == "" || req.UpstreamToken == "" {
		return fmt.Errorf("usage: users create --name <name> --email <email> --pipedrive-token <token>")
	}

	user, err := client.CreateUser(ctx, req)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	green.Printf("✓ Created user: %s\n", user.ID)
	fmt.Printf("  Name:      %s\n", user.Name)
	fmt.Printf("  Email:     %s\n", user.Email)
	fmt.Printf("  Token:     %s\n", user.BearerToken)
	yellow.Println("  Store the token now; it authenticates MCP requests as this user.")

	return nil
}

func cmdUsersRevoke(ctx context.Context, client *admin.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: users revoke <bearer-token>")
	}

	if err := client.RevokeUser(ctx, args[0]); err != nil {
		return fmt.Errorf("revoking user: %w", err)
	}

	color.Green("✓ Revoked user %s\n", truncate(args[0], 16))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getToken returns the admin token from MCP_ADMIN_TOKEN or the token file.
func getToken() string {
	if token := os.Getenv("MCP_ADMIN_TOKEN"); token != "" {
		return token
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	data, err := os.ReadFile(filepath.Join(configDir, "pipedrive-gateway", "admin-token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
