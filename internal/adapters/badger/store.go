// Package badger provides a BadgerDB-backed implementation of the catalog and
// graph repository ports.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

// Key prefixes for BadgerDB storage
const (
	catalogKeyPrefix = "catalog:"
	trackKeyPrefix   = "track:"
	graphKeyPrefix   = "graph:"
)

// graphRecord is the stored form of a similarity graph.
type graphRecord struct {
	Threshold float64       `json:"threshold"`
	Nodes     []domain.Node `json:"nodes"`
	Edges     []domain.Edge `json:"edges"`
}

type catalogRecord struct {
	Tracks int `json:"tracks"`
}

// Store implements the repository ports on top of BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store in dir. When inMemory is set dir is ignored
// and nothing touches the disk.
func Open(dir string, inMemory bool, log logrus.FieldLogger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	if log != nil {
		opts.Logger = log.WithField("component", "badger")
	} else {
		opts.Logger = nil
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func catalogKey(snapshot string) []byte {
	return []byte(catalogKeyPrefix + snapshot)
}

// trackPrefix length-prefixes the snapshot so no snapshot's prefix is a
// prefix of another's: "track:3:a:b:" vs "track:1:a:".
func trackPrefix(snapshot string) []byte {
	return []byte(trackKeyPrefix + strconv.Itoa(len(snapshot)) + ":" + snapshot + ":")
}

func trackKey(snapshot, id string) []byte {
	return append(trackPrefix(snapshot), id...)
}

func graphKey(snapshot string) []byte {
	return []byte(graphKeyPrefix + snapshot)
}

// LoadCatalog returns every track stored under snapshot.
func (s *Store) LoadCatalog(ctx context.Context, snapshot string) (domain.Catalog, error) {
	c := domain.Catalog{}
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(catalogKey(snapshot)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get catalog: %w", err)
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := trackPrefix(snapshot)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t domain.Track
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return fmt.Errorf("decode track %s: %w", it.Item().Key(), err)
			}
			c[t.ID] = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SaveCatalog replaces the snapshot's tracks with c.
func (s *Store) SaveCatalog(ctx context.Context, snapshot string, c domain.Catalog) error {
	prefix := trackPrefix(snapshot)
	stale, err := s.keysWithPrefix(prefix)
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, k := range stale {
		if _, keep := c[string(k[len(prefix):])]; keep {
			continue
		}
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("delete stale track: %w", err)
		}
	}
	for _, id := range c.IDs() {
		data, err := json.Marshal(c[id])
		if err != nil {
			return fmt.Errorf("marshal track %s: %w", id, err)
		}
		if err := wb.Set(trackKey(snapshot, id), data); err != nil {
			return fmt.Errorf("set track %s: %w", id, err)
		}
	}
	meta, err := json.Marshal(catalogRecord{Tracks: len(c)})
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := wb.Set(catalogKey(snapshot), meta); err != nil {
		return fmt.Errorf("set catalog: %w", err)
	}
	return wb.Flush()
}

// UpdateTrackFeatures overwrites one track's features.
func (s *Store) UpdateTrackFeatures(ctx context.Context, snapshot, trackID string, features domain.AudioFeatures) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := trackKey(snapshot, trackID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get track: %w", err)
		}

		var t domain.Track
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		}); err != nil {
			return fmt.Errorf("decode track: %w", err)
		}
		t.Features = features

		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal track: %w", err)
		}
		return txn.Set(key, data)
	})
}

// LoadGraph returns the graph stored under snapshot.
func (s *Store) LoadGraph(ctx context.Context, snapshot string) (*domain.Graph, error) {
	var rec graphRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(graphKey(snapshot))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get graph: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}

	g := domain.NewGraph(rec.Threshold)
	for _, n := range rec.Nodes {
		g.AddNode(n)
	}
	for _, e := range rec.Edges {
		if err := g.AddEdge(e.U, e.V, e.Weight); err != nil {
			return nil, fmt.Errorf("corrupt graph edge %s-%s: %w", e.U, e.V, err)
		}
	}
	return g, nil
}

// SaveGraph replaces the stored graph.
func (s *Store) SaveGraph(ctx context.Context, snapshot string, g *domain.Graph) error {
	rec := graphRecord{Threshold: g.Threshold, Edges: g.Edges()}
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		rec.Nodes = append(rec.Nodes, n)
	}
	return s.putGraph(snapshot, rec)
}

// SaveEdgeWeights updates weights of stored edges in a single transaction.
// Edges that are not stored are ignored.
func (s *Store) SaveEdgeWeights(ctx context.Context, snapshot string, edges []domain.Edge) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(graphKey(snapshot))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get graph: %w", err)
		}
		var rec graphRecord
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("decode graph: %w", err)
		}

		idx := make(map[[2]string]int, len(rec.Edges))
		for i, e := range rec.Edges {
			idx[[2]string{e.U, e.V}] = i
		}
		for _, e := range edges {
			u, v := e.U, e.V
			if v < u {
				u, v = v, u
			}
			if i, ok := idx[[2]string{u, v}]; ok && e.Weight != nil {
				w := *e.Weight
				rec.Edges[i].Weight = &w
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal graph: %w", err)
		}
		return txn.Set(graphKey(snapshot), data)
	})
}

func (s *Store) putGraph(snapshot string, rec graphRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(graphKey(snapshot), data)
	})
}

func (s *Store) keysWithPrefix(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}
