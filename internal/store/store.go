// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists rabbit hole graphs to SQLite, applying the
// durable write queue's operations as idempotent upserts.
// Implements: prd008-persistence R1, R4;
//
//	docs/ARCHITECTURE.md § Remote Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/rabbithole/internal/queue"
	"github.com/pdiddy/rabbithole/pkg/types"
)

const defaultDBFile = "rabbithole.db"

// Store is a SQLite-backed queue.Remote. Node and edge rows hold the full
// entity as JSON, keyed by (rabbit_hole_id, id), so replaying any operation
// converges to the same row.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the database at cfg.Path and bootstraps the schema.
func Open(cfg types.StoreConfig, logger *slog.Logger) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = defaultDBFile
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, log: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			rabbit_hole_id TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (rabbit_hole_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			rabbit_hole_id TEXT NOT NULL,
			id TEXT NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (rabbit_hole_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(rabbit_hole_id, source)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(rabbit_hole_id, target)`,
		`CREATE TABLE IF NOT EXISTS clusters (
			rabbit_hole_id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Apply executes one queued operation. Malformed or unsupported operations
// come back as non-retryable DispatchErrors so the queue drops them; plain
// database failures come back retryable so the queue holds its order.
func (s *Store) Apply(ctx context.Context, op queue.Op) error {
	if op.RabbitHoleID == "" {
		return queue.NonRetryable("operation missing rabbit hole id", nil)
	}

	switch op.Kind {
	case queue.OpAddNode, queue.OpUpdateNodeData:
		return s.upsertNode(ctx, op)
	case queue.OpRemoveNode:
		return s.removeNode(ctx, op)
	case queue.OpAddEdge:
		return s.upsertEdge(ctx, op)
	case queue.OpRemoveEdge:
		return s.exec(ctx,
			`DELETE FROM edges WHERE rabbit_hole_id = ? AND id = ?`,
			op.RabbitHoleID, op.EdgeID)
	case queue.OpUpdateNodeState:
		return s.patchNode(ctx, op.RabbitHoleID, op.NodeID,
			`json_set(data, '$.state', ?)`, string(op.State))
	case queue.OpUpdateNodePosition:
		return s.patchNode(ctx, op.RabbitHoleID, op.NodeID,
			`json_set(data, '$.position.x', ?, '$.position.y', ?)`,
			op.Position.X, op.Position.Y)
	case queue.OpSetClusters:
		return s.setClusters(ctx, op)
	case queue.OpClearRabbitHole:
		return s.clear(ctx, op.RabbitHoleID)
	default:
		return queue.NonRetryable(fmt.Sprintf("unsupported op kind %q", op.Kind), nil)
	}
}

func (s *Store) upsertNode(ctx context.Context, op queue.Op) error {
	if op.Node == nil {
		return queue.NonRetryable("node operation missing payload", nil)
	}
	data, err := json.Marshal(op.Node)
	if err != nil {
		return queue.NonRetryable("encoding node", err)
	}
	return s.exec(ctx,
		`INSERT INTO nodes (rabbit_hole_id, id, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (rabbit_hole_id, id)
		 DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		op.RabbitHoleID, op.Node.ID, string(data), now())
}

func (s *Store) upsertEdge(ctx context.Context, op queue.Op) error {
	if op.Edge == nil {
		return queue.NonRetryable("edge operation missing payload", nil)
	}
	data, err := json.Marshal(op.Edge)
	if err != nil {
		return queue.NonRetryable("encoding edge", err)
	}
	return s.exec(ctx,
		`INSERT INTO edges (rabbit_hole_id, id, source, target, data, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (rabbit_hole_id, id)
		 DO UPDATE SET source = excluded.source, target = excluded.target,
		               data = excluded.data, updated_at = excluded.updated_at`,
		op.RabbitHoleID, op.Edge.ID, op.Edge.Source, op.Edge.Target, string(data), now())
}

// removeNode deletes the node row and its incident edges in one
// transaction, mirroring the in-memory cascade.
func (s *Store) removeNode(ctx context.Context, op queue.Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queue.Retryable("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM nodes WHERE rabbit_hole_id = ? AND id = ?`,
		op.RabbitHoleID, op.NodeID); err != nil {
		return queue.Retryable("deleting node", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM edges WHERE rabbit_hole_id = ? AND (source = ? OR target = ?)`,
		op.RabbitHoleID, op.NodeID, op.NodeID); err != nil {
		return queue.Retryable("deleting incident edges", err)
	}
	if err := tx.Commit(); err != nil {
		return queue.Retryable("committing node removal", err)
	}
	return nil
}

// patchNode rewrites one JSON field in place. A missing row means an
// earlier add was dropped; retrying cannot repair that, so the patch is
// dropped too.
func (s *Store) patchNode(ctx context.Context, rabbitHoleID, nodeID, expr string, args ...any) error {
	query := `UPDATE nodes SET data = ` + expr + `, updated_at = ? WHERE rabbit_hole_id = ? AND id = ?`
	res, err := s.db.ExecContext(ctx, query, append(args, now(), rabbitHoleID, nodeID)...)
	if err != nil {
		return queue.Retryable("patching node", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return queue.Retryable("counting patched rows", err)
	}
	if affected == 0 {
		return queue.NonRetryable(fmt.Sprintf("patch targets unknown node %s", nodeID), nil)
	}
	return nil
}

func (s *Store) setClusters(ctx context.Context, op queue.Op) error {
	clusters := op.Clusters
	if clusters == nil {
		clusters = []types.Cluster{}
	}
	data, err := json.Marshal(clusters)
	if err != nil {
		return queue.NonRetryable("encoding clusters", err)
	}
	return s.exec(ctx,
		`INSERT INTO clusters (rabbit_hole_id, data, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (rabbit_hole_id)
		 DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		op.RabbitHoleID, string(data), now())
}

func (s *Store) clear(ctx context.Context, rabbitHoleID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queue.Retryable("beginning transaction", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"nodes", "edges", "clusters"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE rabbit_hole_id = ?`, rabbitHoleID); err != nil {
			return queue.Retryable("clearing "+table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return queue.Retryable("committing clear", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return queue.Retryable("writing to store", err)
	}
	return nil
}

// LoadRabbitHole reads a persisted graph back into snapshot form. The
// store keeps no weight profile or query text; those belong to the local
// session file, so the returned snapshot carries defaults for both.
// Node cluster assignments are restamped by the graph store on load.
func (s *Store) LoadRabbitHole(ctx context.Context, rabbitHoleID string) (types.Snapshot, error) {
	snap := types.EmptySnapshot()

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM nodes WHERE rabbit_hole_id = ? ORDER BY id`, rabbitHoleID)
	if err != nil {
		return snap, fmt.Errorf("reading nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return snap, fmt.Errorf("scanning node row: %w", err)
		}
		var n types.GraphNode
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			s.log.Warn("skipping undecodable node row", "rabbitHole", rabbitHoleID, "error", err)
			continue
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterating node rows: %w", err)
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT data FROM edges WHERE rabbit_hole_id = ? ORDER BY id`, rabbitHoleID)
	if err != nil {
		return snap, fmt.Errorf("reading edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var data string
		if err := edgeRows.Scan(&data); err != nil {
			return snap, fmt.Errorf("scanning edge row: %w", err)
		}
		var e types.GraphEdge
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			s.log.Warn("skipping undecodable edge row", "rabbitHole", rabbitHoleID, "error", err)
			continue
		}
		snap.Edges = append(snap.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return snap, fmt.Errorf("iterating edge rows: %w", err)
	}

	var clusterData string
	err = s.db.QueryRowContext(ctx,
		`SELECT data FROM clusters WHERE rabbit_hole_id = ?`, rabbitHoleID).Scan(&clusterData)
	switch {
	case err == sql.ErrNoRows:
		// No detection pass was ever persisted.
	case err != nil:
		return snap, fmt.Errorf("reading clusters: %w", err)
	default:
		if err := json.Unmarshal([]byte(clusterData), &snap.Clusters); err != nil {
			return snap, fmt.Errorf("decoding clusters: %w", err)
		}
	}

	return snap, nil
}

// ListRabbitHoles returns the distinct rabbit hole ids with persisted
// nodes, sorted.
func (s *Store) ListRabbitHoles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT rabbit_hole_id FROM nodes ORDER BY rabbit_hole_id`)
	if err != nil {
		return nil, fmt.Errorf("listing rabbit holes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning rabbit hole id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
