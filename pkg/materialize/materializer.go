package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/depmesh/depmesh/pkg/graph"
	"github.com/depmesh/depmesh/pkg/manifest"
)

// ErrCycle marks a malformed manifest whose dependency "tree" reaches a
// dependency from inside its own subtree. The run is aborted and rolled
// back; nothing is written.
var ErrCycle = errors.New("materialize: dependency cycle")

// Materializer walks a project manifest and applies it to a graph store
// as one transactional batch of node and edge upserts.
type Materializer struct {
	store graph.Store
}

// New creates a Materializer writing through the given store.
func New(store graph.Store) *Materializer {
	return &Materializer{store: store}
}

// edgeConfig identifies one (from, to, config) observation within a run.
// Scope is constant for the whole run (the project identity), so it is
// not part of the key.
type edgeConfig struct {
	from, to, config string
}

// Run materializes the manifest inside a single transaction. Every
// distinct dependency name becomes exactly one node; every parent/child
// relationship becomes exactly one edge annotated with the set of
// configuration names it was observed under. The first store failure
// rolls back the whole transaction and is returned with the failing
// operation attached; the store is then exactly as it was before the run.
func (m *Materializer) Run(ctx context.Context, man *manifest.ProjectManifest) error {
	start := time.Now()

	txn, err := m.store.Begin(ctx)
	if err != nil {
		RunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	nodes, edges, err := m.emit(ctx, txn, man)
	if err != nil {
		if rbErr := txn.Rollback(ctx); rbErr != nil {
			slog.Error("rollback failed", "project", man.ID(), "error", rbErr)
		}
		RunsTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := txn.Commit(ctx); err != nil {
		RunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to commit transaction for %q: %w", man.ID(), err)
	}

	NodesUpserted.Add(float64(nodes))
	EdgesUpserted.Add(float64(edges))
	RunsTotal.WithLabelValues("ok").Inc()
	RunDuration.Observe(time.Since(start).Seconds())

	slog.Info("manifest materialized",
		"project", man.ID(),
		"configurations", len(man.Configurations),
		"nodes", nodes,
		"edges", edges,
		"duration", time.Since(start))
	return nil
}

// frame is one pending tree position of the depth-first walk. path holds
// the chain of dependency names from the configuration root down to the
// parent of dep; a dep whose name is already on its path is a cycle.
type frame struct {
	dep    *manifest.Dependency
	parent string
	path   []string
}

// emit issues the minimal upsert sequence for the manifest: each node
// identity at most once, each (from, to, config) observation at most
// once. Returns the number of node and edge upserts issued.
func (m *Materializer) emit(ctx context.Context, txn graph.Txn, man *manifest.ProjectManifest) (int, int, error) {
	projectID := man.ID()

	seenNodes := make(map[string]struct{})
	seenEdges := make(map[edgeConfig]struct{})

	upsertNode := func(id string) error {
		if _, ok := seenNodes[id]; ok {
			return nil
		}
		if err := txn.UpsertNode(ctx, id); err != nil {
			return fmt.Errorf("failed to upsert node %q: %w", id, err)
		}
		seenNodes[id] = struct{}{}
		return nil
	}

	upsertEdge := func(from, to, config string) error {
		key := edgeConfig{from: from, to: to, config: config}
		if _, ok := seenEdges[key]; ok {
			return nil
		}
		if err := txn.UpsertEdge(ctx, from, to, projectID, config); err != nil {
			return fmt.Errorf("failed to upsert edge %q -> %q under %q: %w", from, to, config, err)
		}
		seenEdges[key] = struct{}{}
		return nil
	}

	if err := upsertNode(projectID); err != nil {
		return len(seenNodes), len(seenEdges), err
	}

	for _, cfg := range man.Configurations {
		if len(cfg.Dependencies) == 0 {
			continue
		}

		// Explicit stack instead of recursion: dependency trees from
		// large builds can be deep. Children are pushed in reverse so
		// pop order matches manifest order, keeping the walk pre-order.
		stack := make([]frame, 0, len(cfg.Dependencies))
		for i := len(cfg.Dependencies) - 1; i >= 0; i-- {
			stack = append(stack, frame{dep: &cfg.Dependencies[i], parent: projectID})
		}

		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if slices.Contains(f.path, f.dep.Name) {
				return len(seenNodes), len(seenEdges), fmt.Errorf(
					"%w: %q reached from itself in configuration %q", ErrCycle, f.dep.Name, cfg.Name)
			}

			if err := upsertNode(f.dep.Name); err != nil {
				return len(seenNodes), len(seenEdges), err
			}
			if err := upsertEdge(f.parent, f.dep.Name, cfg.Name); err != nil {
				return len(seenNodes), len(seenEdges), err
			}

			if len(f.dep.Children) == 0 {
				continue
			}
			childPath := append(f.path[:len(f.path):len(f.path)], f.dep.Name)
			for i := len(f.dep.Children) - 1; i >= 0; i-- {
				stack = append(stack, frame{
					dep:    &f.dep.Children[i],
					parent: f.dep.Name,
					path:   childPath,
				})
			}
		}
	}

	return len(seenNodes), len(seenEdges), nil
}
