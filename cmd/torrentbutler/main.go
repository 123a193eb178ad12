// ABOUTME: Entry point for torrentbutler
// ABOUTME: Wires the Matrix bridge, dialogue engine, and Transmission client together

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"torrentbutler/internal/config"
	"torrentbutler/internal/dialog"
	"torrentbutler/internal/history"
	"torrentbutler/internal/links"
	"torrentbutler/internal/session"
	"torrentbutler/internal/tracker"
	"torrentbutler/internal/transmission"
)

const banner = `
 _                             _   _           _   _
| |_ ___  _ __ _ __ ___ _ __ | |_| |__  _   _| |_| | ___ _ __
| __/ _ \| '__| '__/ _ \ '_ \| __| '_ \| | | | __| |/ _ \ '__|
| || (_) | |  | | |  __/ | | | |_| |_) | |_| | |_| |  __/ |
 \__\___/|_|  |_|  \___|_| |_|\__|_.__/ \__,_|\__|_|\___|_|
`

// getConfigPath returns the path to the torrentbutler config file.
// Priority: TORRENTBUTLER_CONFIG env var > XDG_CONFIG_HOME/torrentbutler/config.toml > ~/.config/torrentbutler/config.toml
func getConfigPath() string {
	if envPath := os.Getenv("TORRENTBUTLER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "torrentbutler", "config.toml")
}

// getDataPath returns the path to the torrentbutler data directory.
// Priority: XDG_DATA_HOME/torrentbutler > ~/.local/share/torrentbutler
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "torrentbutler")
}

func main() {
	// Check for init command
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := getConfigPath()

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	// Print startup info
	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:       %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver:   %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("User:         %s\n", cfg.Matrix.UserID)
	green.Print("    ▶ ")
	fmt.Printf("Transmission: %s:%d\n", cfg.Transmission.Host, cfg.Transmission.Port)
	green.Print("    ▶ ")
	fmt.Printf("Extractor:    %s\n", cfg.Extractor.Mode)
	if cfg.Tracker.Host != "" {
		green.Print("    ▶ ")
		fmt.Printf("Tracker:      %s\n", cfg.Tracker.Host)
	}
	fmt.Println()

	// Setup graceful shutdown context first - all operations should respect it
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := transmission.NewClient(
		cfg.Transmission.Host,
		cfg.Transmission.Port,
		cfg.Transmission.Username,
		cfg.Transmission.Password,
	)

	var fetcher links.Fetcher
	switch cfg.Extractor.Mode {
	case "browser":
		browser, err := links.NewBrowserFetcher(cfg.Extractor.Timeout)
		if err != nil {
			return fmt.Errorf("starting browser fetcher: %w", err)
		}
		defer browser.Close()
		fetcher = browser
	default:
		fetcher = links.NewHTTPFetcher(cfg.Extractor.Timeout)
	}

	deps := dialog.Deps{
		Store:     session.NewMemoryStore(),
		Client:    client,
		Extractor: links.NewExtractor(fetcher),
		Rewrite:   tracker.NewRewriter(cfg.Tracker.Host, cfg.Tracker.PassKey).Rewrite,
		Logger:    logger,
	}

	if cfg.History.Path != "" {
		historyPath := cfg.History.Path
		if !filepath.IsAbs(historyPath) {
			historyPath = filepath.Join(getDataPath(), historyPath)
		}
		ledger, err := history.Open(historyPath)
		if err != nil {
			return fmt.Errorf("opening history ledger: %w", err)
		}
		defer ledger.Close()
		deps.Recorder = ledger
		logger.Info("command history enabled", "path", historyPath)
	}

	engine := dialog.New(deps)

	bridge, err := NewBridge(cfg, engine, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	logger.Info("starting bridge")
	return bridge.Run(ctx)
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
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

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func runInit() error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println("    Interactive Setup")
	fmt.Println("    -----------------")
	fmt.Println()

	configPath := getConfigPath()

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		yellow.Printf("    Config already exists at %s\n", configPath)
		fmt.Print("    Overwrite? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("    Aborted.")
			return nil
		}
		fmt.Println()
	}

	reader := bufio.NewReader(os.Stdin)

	ask := func(prompt, fallback string) string {
		green.Print("    ▶ ")
		if fallback != "" {
			fmt.Printf("%s [%s]: ", prompt, fallback)
		} else {
			fmt.Printf("%s: ", prompt)
		}
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return fallback
		}
		return answer
	}

	homeserver := ask("Matrix homeserver URL", "https://matrix.org")
	userID := ask("Matrix user ID (e.g. @butler:matrix.org)", "")
	accessToken := ask("Matrix access token", "")
	allowedUser := ask("Allowed Matrix user (e.g. @you:matrix.org)", "")
	transmissionHost := ask("Transmission host", "localhost")
	transmissionUser := ask("Transmission username", "")
	transmissionPass := ask("Transmission password", "")

	cfg := fmt.Sprintf(`# torrentbutler configuration
# Generated by torrentbutler init

[matrix]
homeserver = "%s"
user_id = "%s"
access_token = "%s"
# Only these users may talk to the butler
allowed_users = ["%s"]

[transmission]
host = "%s"
port = 9091
username = "%s"
password = "%s"

[tracker]
# Private tracker pass-key injection (optional)
host = ""
pass_key = ""

[extractor]
# "http" fetches pages directly, "browser" drives a headless browser
mode = "http"
timeout = "15s"

[history]
# Relative paths resolve under the data directory; empty disables history
path = "history.db"

[bridge]
typing_indicator = true

[logging]
level = "info"
format = "text"
`, homeserver, userID, accessToken, allowedUser, transmissionHost, transmissionUser, transmissionPass)

	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(configPath, []byte(cfg), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	green.Printf("    ✓ Config written to %s\n", configPath)
	fmt.Println()
	fmt.Println("    Next steps:")
	fmt.Println("    1. Run: torrentbutler")
	fmt.Println()

	return nil
}
