// Package sqlite provides a SQLite-backed implementation of the catalog and
// graph repository ports.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

// Adapter implements the repository ports for SQLite
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) LoadCatalog(ctx context.Context, snapshot string) (domain.Catalog, error) {
	var exists int
	err := a.db.QueryRowContext(ctx, "SELECT 1 FROM catalogs WHERE snapshot = ?", snapshot).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, name, artist, preview_url, features_estimated,
			energy, tempo, valence, loudness, danceability,
			IFNULL(acousticness, 0), IFNULL(instrumentalness, 0)
		FROM tracks
		WHERE snapshot = ?
	`, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog tracks: %w", err)
	}
	defer rows.Close()

	c := domain.Catalog{}
	for rows.Next() {
		var t domain.Track
		var previewURL sql.NullString
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Artist,
			&previewURL,
			&t.FeaturesEstimated,
			&t.Features.Energy,
			&t.Features.Tempo,
			&t.Features.Valence,
			&t.Features.Loudness,
			&t.Features.Danceability,
			&t.Features.Acousticness,
			&t.Features.Instrumentalness,
		); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		if previewURL.Valid {
			t.PreviewURL = previewURL.String
		}
		c[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}
	return c, nil
}

// SaveCatalog replaces the snapshot's tracks with c.
func (a *Adapter) SaveCatalog(ctx context.Context, snapshot string, c domain.Catalog) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalogs (snapshot) VALUES (?)
		ON CONFLICT(snapshot) DO UPDATE SET fetched_at=CURRENT_TIMESTAMP;
	`, snapshot); err != nil {
		return fmt.Errorf("failed to save catalog metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tracks WHERE snapshot = ?", snapshot); err != nil {
		return fmt.Errorf("failed to clear old tracks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (
			snapshot, id, name, artist, preview_url, features_estimated,
			energy, tempo, valence, loudness, danceability, acousticness, instrumentalness
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range c.IDs() {
		t := c[id]
		if _, err := stmt.ExecContext(
			ctx,
			snapshot,
			t.ID,
			t.Name,
			t.Artist,
			nullString(t.PreviewURL),
			t.FeaturesEstimated,
			t.Features.Energy,
			t.Features.Tempo,
			t.Features.Valence,
			t.Features.Loudness,
			t.Features.Danceability,
			t.Features.Acousticness,
			t.Features.Instrumentalness,
		); err != nil {
			return fmt.Errorf("failed to save track %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

func (a *Adapter) UpdateTrackFeatures(ctx context.Context, snapshot, trackID string, features domain.AudioFeatures) error {
	query := `
		UPDATE tracks
		SET
			energy = ?,
			tempo = ?,
			valence = ?,
			loudness = ?,
			danceability = ?,
			acousticness = ?,
			instrumentalness = ?
		WHERE snapshot = ? AND id = ?
	`
	res, err := a.db.ExecContext(
		ctx,
		query,
		features.Energy,
		features.Tempo,
		features.Valence,
		features.Loudness,
		features.Danceability,
		features.Acousticness,
		features.Instrumentalness,
		snapshot,
		trackID,
	)
	if err != nil {
		return fmt.Errorf("failed to update track features: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (a *Adapter) LoadGraph(ctx context.Context, snapshot string) (*domain.Graph, error) {
	var threshold float64
	err := a.db.QueryRowContext(ctx, "SELECT threshold FROM graphs WHERE snapshot = ?", snapshot).Scan(&threshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	g := domain.NewGraph(threshold)

	nodeRows, err := a.db.QueryContext(ctx, `
		SELECT id, IFNULL(name, ''), IFNULL(artist, ''),
			IFNULL(energy, 0), IFNULL(tempo, 0), IFNULL(valence, 0),
			IFNULL(loudness, 0), IFNULL(danceability, 0)
		FROM graph_nodes
		WHERE snapshot = ?
	`, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph nodes: %w", err)
	}
	defer nodeRows.Close()
	for nodeRows.Next() {
		var n domain.Node
		if err := nodeRows.Scan(
			&n.ID,
			&n.Name,
			&n.Artist,
			&n.Features.Energy,
			&n.Features.Tempo,
			&n.Features.Valence,
			&n.Features.Loudness,
			&n.Features.Danceability,
		); err != nil {
			return nil, fmt.Errorf("failed to scan graph node: %w", err)
		}
		g.AddNode(n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate graph nodes: %w", err)
	}

	edgeRows, err := a.db.QueryContext(ctx, "SELECT u, v, weight FROM graph_edges WHERE snapshot = ?", snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var u, v string
		var weight sql.NullFloat64
		if err := edgeRows.Scan(&u, &v, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan graph edge: %w", err)
		}
		var w *float64
		if weight.Valid {
			w = domain.Weighted(weight.Float64)
		}
		if err := g.AddEdge(u, v, w); err != nil {
			return nil, fmt.Errorf("corrupt graph edge %s-%s: %w", u, v, err)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate graph edges: %w", err)
	}

	return g, nil
}

// SaveGraph replaces the snapshot's graph with g. Unknown weights are stored
// as NULL.
func (a *Adapter) SaveGraph(ctx context.Context, snapshot string, g *domain.Graph) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO graphs (snapshot, threshold) VALUES (?, ?)
		ON CONFLICT(snapshot) DO UPDATE SET threshold=excluded.threshold, built_at=CURRENT_TIMESTAMP;
	`, snapshot, g.Threshold); err != nil {
		return fmt.Errorf("failed to save graph metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM graph_edges WHERE snapshot = ?", snapshot); err != nil {
		return fmt.Errorf("failed to clear old edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM graph_nodes WHERE snapshot = ?", snapshot); err != nil {
		return fmt.Errorf("failed to clear old nodes: %w", err)
	}

	stmtNode, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_nodes (snapshot, id, name, artist, energy, tempo, valence, loudness, danceability)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmtNode.Close()

	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		if _, err := stmtNode.ExecContext(
			ctx,
			snapshot,
			n.ID,
			n.Name,
			n.Artist,
			n.Features.Energy,
			n.Features.Tempo,
			n.Features.Valence,
			n.Features.Loudness,
			n.Features.Danceability,
		); err != nil {
			return fmt.Errorf("failed to save node %s: %w", n.ID, err)
		}
	}

	stmtEdge, err := tx.PrepareContext(ctx, "INSERT INTO graph_edges (snapshot, u, v, weight) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmtEdge.Close()

	for _, e := range g.Edges() {
		if _, err := stmtEdge.ExecContext(ctx, snapshot, e.U, e.V, nullWeight(e.Weight)); err != nil {
			return fmt.Errorf("failed to save edge %s-%s: %w", e.U, e.V, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// SaveEdgeWeights updates the weights of existing edges. Edges that are not
// stored and edges without a weight are ignored.
func (a *Adapter) SaveEdgeWeights(ctx context.Context, snapshot string, edges []domain.Edge) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE graph_edges SET weight = ? WHERE snapshot = ? AND u = ? AND v = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range edges {
		if e.Weight == nil {
			continue
		}
		u, v := e.U, e.V
		if v < u {
			u, v = v, u
		}
		if _, err := stmt.ExecContext(ctx, *e.Weight, snapshot, u, v); err != nil {
			return fmt.Errorf("failed to save weight %s-%s: %w", u, v, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS catalogs (
		snapshot TEXT PRIMARY KEY,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tracks (
		snapshot TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		artist TEXT NOT NULL,
		preview_url TEXT,
		features_estimated INTEGER NOT NULL DEFAULT 0,
		energy REAL NOT NULL,
		tempo REAL NOT NULL,
		valence REAL NOT NULL,
		loudness REAL NOT NULL,
		danceability REAL NOT NULL,
		PRIMARY KEY (snapshot, id),
		FOREIGN KEY(snapshot) REFERENCES catalogs(snapshot) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS graphs (
		snapshot TEXT PRIMARY KEY,
		threshold REAL NOT NULL,
		built_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS graph_nodes (
		snapshot TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT,
		artist TEXT,
		energy REAL,
		tempo REAL,
		valence REAL,
		loudness REAL,
		danceability REAL,
		PRIMARY KEY (snapshot, id),
		FOREIGN KEY(snapshot) REFERENCES graphs(snapshot) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS graph_edges (
		snapshot TEXT NOT NULL,
		u TEXT NOT NULL,
		v TEXT NOT NULL,
		weight REAL,
		PRIMARY KEY (snapshot, u, v),
		CHECK (u < v),
		FOREIGN KEY(snapshot) REFERENCES graphs(snapshot) ON DELETE CASCADE
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// columns added after the first release of the tracks table
	for _, col := range []string{"acousticness REAL", "instrumentalness REAL"} {
		if _, err := a.db.Exec("ALTER TABLE tracks ADD COLUMN " + col); err != nil {
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullWeight(w *float64) sql.NullFloat64 {
	if w == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *w, Valid: true}
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
