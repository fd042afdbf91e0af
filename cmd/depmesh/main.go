package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/depmesh/depmesh/pkg/graph"
	"github.com/depmesh/depmesh/pkg/manifest"
	"github.com/depmesh/depmesh/pkg/materialize"
	"github.com/depmesh/depmesh/pkg/store/memory"
	"github.com/depmesh/depmesh/pkg/store/neo4j"
	"github.com/depmesh/depmesh/pkg/store/redis"
	"github.com/depmesh/depmesh/pkg/store/sqlite"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	config, err := LoadConfig(args)
	if err != nil {
		return err
	}

	man, err := decodeReport(config.ReportPath)
	if err != nil {
		return err
	}
	slog.Info("report decoded",
		"project", man.ID(),
		"configurations", len(man.Configurations),
		"backend", config.Backend)

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	store, cleanup, err := openStore(ctx, config)
	if err != nil {
		return err
	}
	defer cleanup()

	return materialize.New(store).Run(ctx, man)
}

func decodeReport(path string) (*manifest.ProjectManifest, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open report: %w", err)
		}
		defer f.Close()
		r = f
	}
	return manifest.Decode(r)
}

func openStore(ctx context.Context, config Config) (graph.Store, func(), error) {
	switch config.Backend {
	case "sqlite":
		st, err := sqlite.NewStore(config.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {
			if err := st.Close(); err != nil {
				slog.Error("failed to close sqlite store", "error", err)
			}
		}, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: config.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", config.RedisAddr, err)
		}
		return redis.NewStore(client), func() {
			if err := client.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}, nil

	case "neo4j":
		st, err := neo4j.NewStore(ctx, config.Neo4jURI, config.Neo4jUser, config.Neo4jPass)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {
			if err := st.Close(context.Background()); err != nil {
				slog.Error("failed to close neo4j store", "error", err)
			}
		}, nil

	default: // memory, validated by LoadConfig
		st := memory.NewStore()
		return st, func() {
			slog.Info("dry run complete", "nodes", st.NodeCount(), "edges", st.EdgeCount())
		}, nil
	}
}
