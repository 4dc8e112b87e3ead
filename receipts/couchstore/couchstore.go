// Package couchstore is an optional durable receipts.Store backend over
// CouchDB, grounded on storage/database.go's CouchDBClient (connection URL
// building, DBExists/CreateDB bootstrap, Kivik document CRUD), generalized
// here from generic document storage to append-only receipt persistence
// with hook/actor/time-range queries.
package couchstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/kgcengine/kgc/receipts"
)

// Config configures a CouchDB-backed receipts store.
type Config struct {
	URL             string
	Database        string
	Username        string
	Password        string
	Timeout         time.Duration
	CreateIfMissing bool
}

// DefaultConfig mirrors storage.DefaultDatabaseConfig's defaults.
func DefaultConfig() Config {
	return Config{
		URL:             "http://localhost:5984",
		Database:        "kgc_receipts",
		Timeout:         30 * time.Second,
		CreateIfMissing: true,
	}
}

// Store is a receipts.Store backed by a CouchDB database.
type Store struct {
	client *kivik.Client
	db     *kivik.DB
}

// Open connects to CouchDB and returns a Store, creating the database if
// configured to do so.
func Open(cfg Config) (*Store, error) {
	connURL, err := buildConnectionURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("build connection url: %w", err)
	}
	client, err := kivik.New("couch", connURL)
	if err != nil {
		return nil, fmt.Errorf("create kivik client: %w", err)
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	exists, err := client.DBExists(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("check database existence: %w", err)
	}
	if !exists {
		if !cfg.CreateIfMissing {
			return nil, fmt.Errorf("database %s does not exist", cfg.Database)
		}
		if err := client.CreateDB(ctx, cfg.Database); err != nil {
			return nil, fmt.Errorf("create database %s: %w", cfg.Database, err)
		}
	}

	return &Store{client: client, db: client.DB(cfg.Database)}, nil
}

func buildConnectionURL(cfg Config) (string, error) {
	if cfg.URL == "" {
		return "", fmt.Errorf("database URL cannot be empty")
	}
	if cfg.Username == "" && cfg.Password == "" {
		return cfg.URL, nil
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	parsed.User = url.UserPassword(cfg.Username, cfg.Password)
	return parsed.String(), nil
}

// Append persists a receipt as a CouchDB document keyed by its own ID.
func (s *Store) Append(ctx context.Context, r receipts.Receipt) error {
	if _, err := s.db.Put(ctx, r.ID, r); err != nil {
		return fmt.Errorf("put receipt %s: %w", r.ID, err)
	}
	return nil
}

// ByHookID queries receipts emitted by a given hook via a Mango selector.
func (s *Store) ByHookID(ctx context.Context, hookID string) ([]receipts.Receipt, error) {
	return s.find(ctx, map[string]interface{}{"hookId": hookID})
}

// ByActor queries receipts emitted on behalf of a given actor.
func (s *Store) ByActor(ctx context.Context, actor string) ([]receipts.Receipt, error) {
	return s.find(ctx, map[string]interface{}{"actor": actor})
}

// ByTimeRange queries receipts whose startedAt falls within [from, to],
// expressed as RFC3339 bounds for Mango's string comparison.
func (s *Store) ByTimeRange(ctx context.Context, fromUnix, toUnix int64) ([]receipts.Receipt, error) {
	from := time.Unix(fromUnix, 0).UTC().Format(time.RFC3339Nano)
	to := time.Unix(toUnix, 0).UTC().Format(time.RFC3339Nano)
	return s.find(ctx, map[string]interface{}{
		"startedAt": map[string]interface{}{"$gte": from, "$lte": to},
	})
}

func (s *Store) find(ctx context.Context, selector map[string]interface{}) ([]receipts.Receipt, error) {
	rows := s.db.Find(ctx, map[string]interface{}{"selector": selector})
	defer rows.Close()

	var out []receipts.Receipt
	for rows.Next() {
		var r receipts.Receipt
		if err := rows.ScanDoc(&r); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return out, nil
}

// Close releases the underlying Kivik client.
func (s *Store) Close() error {
	return s.client.Close()
}
