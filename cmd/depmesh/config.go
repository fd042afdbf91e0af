package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBackend   = "sqlite"
	defaultRedisAddr = "127.0.0.1:6379"
	defaultNeo4jURI  = "bolt://127.0.0.1:7687"
	defaultTimeout   = 30 * time.Second
)

type Config struct {
	Backend    string
	DBPath     string
	RedisAddr  string
	Neo4jURI   string
	Neo4jUser  string
	Neo4jPass  string
	Timeout    time.Duration
	ReportPath string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "depmesh.db")

	backend := envOrDefault("DEPMESH_BACKEND", defaultBackend)
	dbPath := envOrDefault("DEPMESH_DB_PATH", defaultDBPath)
	redisAddr := envOrDefault("DEPMESH_REDIS_ADDR", defaultRedisAddr)
	neo4jURI := envOrDefault("DEPMESH_NEO4J_URI", defaultNeo4jURI)
	neo4jUser := envOrDefault("DEPMESH_NEO4J_USER", "neo4j")
	neo4jPass := os.Getenv("DEPMESH_NEO4J_PASS")
	timeout := defaultTimeout
	if timeoutEnv := os.Getenv("DEPMESH_TIMEOUT"); timeoutEnv != "" {
		parsed, err := time.ParseDuration(timeoutEnv)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEPMESH_TIMEOUT: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("DEPMESH_TIMEOUT must be positive")
		}
		timeout = parsed
	}

	flagSet := flag.NewFlagSet("depmesh", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagBackend := flagSet.String("backend", backend, "graph backend: sqlite|redis|neo4j|memory")
	flagDB := flagSet.String("db", dbPath, "path to SQLite database (backend=sqlite)")
	flagRedisAddr := flagSet.String("redis-addr", redisAddr, "Redis address (backend=redis)")
	flagNeo4jURI := flagSet.String("neo4j-uri", neo4jURI, "Neo4j bolt URI (backend=neo4j)")
	flagNeo4jUser := flagSet.String("neo4j-user", neo4jUser, "Neo4j username (backend=neo4j)")
	flagNeo4jPass := flagSet.String("neo4j-pass", neo4jPass, "Neo4j password (backend=neo4j)")
	flagTimeout := flagSet.String("timeout", timeout.String(), "deadline for one materialization run")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	timeoutParsed, err := time.ParseDuration(*flagTimeout)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timeout: %w", err)
	}
	if timeoutParsed <= 0 {
		return Config{}, errors.New("timeout must be positive")
	}

	normalizedBackend := strings.ToLower(strings.TrimSpace(*flagBackend))
	switch normalizedBackend {
	case "sqlite", "redis", "neo4j", "memory":
	default:
		return Config{}, fmt.Errorf("unknown backend %q (want sqlite, redis, neo4j or memory)", *flagBackend)
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return Config{}, errors.New("usage: depmesh [flags] <dependency-report.json | ->")
	}
	reportPath := rest[0]
	if reportPath != "-" {
		reportPath = resolvePath(reportPath, cwd)
	}

	config := Config{
		Backend:    normalizedBackend,
		DBPath:     resolvePath(*flagDB, cwd),
		RedisAddr:  *flagRedisAddr,
		Neo4jURI:   *flagNeo4jURI,
		Neo4jUser:  *flagNeo4jUser,
		Neo4jPass:  *flagNeo4jPass,
		Timeout:    timeoutParsed,
		ReportPath: reportPath,
	}
	return config, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func resolvePath(path, cwd string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}
