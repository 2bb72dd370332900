package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/NicolasHaas/godata/pkg/datastore"
	"github.com/NicolasHaas/godata/pkg/logging"
	"github.com/NicolasHaas/godata/pkg/server"
	"github.com/NicolasHaas/godata/pkg/version"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg := server.DefaultConfig()

	flag.StringVar(&cfg.Addr, "addr", getEnv("GODATA_ADDR", cfg.Addr), "HTTP bind address")
	flag.StringVar(&cfg.DBPath, "db", getEnv("GODATA_DB", cfg.DBPath), "SQLite database file path")
	flag.StringVar(&cfg.TypesFile, "types-file", getEnv("GODATA_TYPES_FILE", ""), "YAML file with per-type options (banned-at column, export maps)")
	origins := flag.String("cors-origins", getEnv("GODATA_CORS_ORIGINS", ""), "Comma separated list of allowed CORS origins")
	flag.IntVar(&cfg.MaxPerPage, "max-per-page", getEnvInt("GODATA_MAX_PER_PAGE", cfg.MaxPerPage), "Upper bound for ?per_page")
	flag.BoolVar(&cfg.ExportUsers, "export-users", false, "Export all users as YAML and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")

	logLevel := flag.String("log-level", getEnv("GODATA_LOG_LEVEL", "info"), "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", getEnv("GODATA_LOG_FORMAT", "text"), "Log format: text or json")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	cfg.AllowedOrigins = splitList(*origins)

	st, err := datastore.NewProviderFactory(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, server.Dependencies{Store: st})
	if err != nil {
		_ = st.Close()
		slog.Error("init server", "err", err)
		os.Exit(1)
	}

	// Handle export commands (run and exit)
	if cfg.ExportUsers {
		data, err := server.ExportUsersYAML(context.Background(), srv.Types())
		_ = st.Close()
		if err != nil {
			slog.Error("export users", "err", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		return
	}

	slog.Info("starting godata", "version", version.String(), "db", cfg.DBPath)
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring invalid %s=%q\n", key, v)
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
