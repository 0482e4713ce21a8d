package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-check/internal/receipt"
	"github.com/zombor/receipt-check/internal/scanning"
	"github.com/zombor/receipt-check/internal/validation"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const defaultAcceptedAmounts = "10,20,30,18,25,15,29,24,22,200"

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	fs := ff.NewFlagSet("receipt-check")
	var (
		port            = fs.IntLong("port", 5000, "HTTP server port (PORT is honoured when unset)")
		dbPath          = fs.StringLong("db", "receipt-check.db", "Database file path")
		storagePath     = fs.StringLong("storage", "./receipts", "Directory where uploaded receipts are archived")
		acceptedAmounts = fs.StringLong("accepted-amounts", defaultAcceptedAmounts, "Comma separated whole amounts a receipt may carry; empty accepts any")
		timezone        = fs.StringLong("timezone", "America/Sao_Paulo", "Time zone used to decide today's date")
		dateStrategy    = fs.StringLong("date-strategy", "first", "Date to use when a receipt has several: 'first' or 'latest'")
		fetchTimeout    = fs.DurationLong("fetch-timeout", 15*time.Second, "Timeout for downloading receipts by URL")
		allowPrivate    = fs.BoolLong("fetch-allow-private", "Allow receipt URLs that resolve to loopback, private or link-local addresses")
		maxUploadMB     = fs.IntLong("max-upload-mb", 20, "Maximum receipt size in megabytes")
		maxPages        = fs.IntLong("max-pages", 0, "Maximum PDF pages to read; 0 reads all")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel        = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_CHECK"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if _, set := os.LookupEnv("RECEIPT_CHECK_PORT"); !set {
		if p := os.Getenv("PORT"); p != "" && !flagGiven("port") {
			if _, err := fmt.Sscanf(p, "%d", port); err != nil {
				slog.Error("Invalid PORT", "value", p, "error", err)
				os.Exit(1)
			}
		}
	}

	location, err := time.LoadLocation(*timezone)
	if err != nil {
		slog.Error("Invalid timezone", "timezone", *timezone, "error", err)
		os.Exit(1)
	}

	accepted, err := validation.ParseAmountSet(*acceptedAmounts)
	if err != nil {
		slog.Error("Invalid accepted amounts", "value", *acceptedAmounts, "error", err)
		os.Exit(1)
	}

	strategy, err := validation.ParseDateStrategy(*dateStrategy)
	if err != nil {
		slog.Error("Invalid date strategy", "value", *dateStrategy, "error", err)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	engine := validation.NewEngine(scanning.NewFitz(*maxPages), validation.Config{
		Accepted:     accepted,
		DateStrategy: strategy,
	})

	maxUpload := int64(*maxUploadMB) << 20
	service := receipt.NewService(engine, db, store, receipt.NewHTTPFetcher(*fetchTimeout, maxUpload, *allowPrivate), location)

	server := receipt.NewServer(service, receipt.ServerConfig{
		BasicAuth: receipt.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		},
		MaxUploadSize: maxUpload,
	})

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"accepted_amounts", accepted.Values(),
		"timezone", location.String(),
		"date_strategy", strategy,
	)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// flagGiven reports whether name was passed on the command line
func flagGiven(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == "--"+name || strings.HasPrefix(arg, "--"+name+"=") {
			return true
		}
	}
	return false
}
