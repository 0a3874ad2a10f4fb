// Package store persists the bot's two documents, the required-channel
// list and the VPN code ledger, as JSON bodies in a SQLite table. Each
// document has a dedicated mutex so read-modify-write sequences never
// interleave.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	channelsDoc = "channels"
	ledgerDoc   = "vpn_codes"
)

// CodeLedger is the persisted code document: the pool of available codes
// (at most one under current policy), the code currently handed out, and
// the code each user was granted, keyed by user ID as a string.
type CodeLedger struct {
	AvailableCodes []string          `json:"available_codes"`
	ActiveCode     string            `json:"active_code"`
	UserCodes      map[string]string `json:"user_codes"`
}

// UserKey converts a Telegram user ID to its ledger map key.
func UserKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// DB wraps a SQLite database holding the bot's documents.
type DB struct {
	sql *sql.DB
	log *zap.Logger

	muChannels sync.Mutex
	muLedger   sync.Mutex
}

// Open opens the database at dbPath and initializes the schema.
func Open(dbPath string, log *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	d, err := New(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// New wraps an existing database handle and initializes the schema.
func New(db *sql.DB, log *zap.Logger) (*DB, error) {
	d := &DB{sql: db, log: log}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DB) init() error {
	_, err := d.sql.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			name       TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return errors.Wrap(err, "init document schema")
	}
	d.log.Info("document store initialized")
	return nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.sql.Close()
}

// loadDoc reads a document body into out. A missing document leaves out
// untouched and returns false.
func (d *DB) loadDoc(ctx context.Context, name string, out any) (bool, error) {
	var body string
	err := d.sql.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "load document %s", name)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return false, errors.Wrapf(err, "decode document %s", name)
	}
	return true, nil
}

func (d *DB) saveDoc(ctx context.Context, name string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "encode document %s", name)
	}
	_, err = d.sql.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (name, body, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)`, name, string(body))
	if err != nil {
		return errors.Wrapf(err, "save document %s", name)
	}
	d.log.Info("saved document", zap.String("name", name))
	return nil
}

// LoadChannels returns the required-channel list, empty on first run.
func (d *DB) LoadChannels(ctx context.Context) ([]string, error) {
	d.muChannels.Lock()
	defer d.muChannels.Unlock()

	var channels []string
	found, err := d.loadDoc(ctx, channelsDoc, &channels)
	if err != nil {
		return nil, err
	}
	if !found {
		d.log.Info("no channel document found; starting with empty channels")
	}
	return channels, nil
}

// SaveChannels replaces the required-channel list wholesale.
func (d *DB) SaveChannels(ctx context.Context, channels []string) error {
	d.muChannels.Lock()
	defer d.muChannels.Unlock()

	if channels == nil {
		channels = []string{}
	}
	return d.saveDoc(ctx, channelsDoc, channels)
}

// LoadLedger returns the code ledger, empty on first run.
func (d *DB) LoadLedger(ctx context.Context) (CodeLedger, error) {
	d.muLedger.Lock()
	defer d.muLedger.Unlock()
	return d.loadLedgerLocked(ctx)
}

func (d *DB) loadLedgerLocked(ctx context.Context) (CodeLedger, error) {
	ledger := CodeLedger{
		AvailableCodes: []string{},
		UserCodes:      map[string]string{},
	}
	if _, err := d.loadDoc(ctx, ledgerDoc, &ledger); err != nil {
		return CodeLedger{}, err
	}
	if ledger.UserCodes == nil {
		ledger.UserCodes = map[string]string{}
	}
	return ledger, nil
}

// UpdateLedger runs fn over the current ledger under the ledger mutex and
// persists the result when fn reports a change. An error from fn aborts
// the update without writing.
func (d *DB) UpdateLedger(ctx context.Context, fn func(*CodeLedger) (bool, error)) error {
	d.muLedger.Lock()
	defer d.muLedger.Unlock()

	ledger, err := d.loadLedgerLocked(ctx)
	if err != nil {
		return err
	}
	dirty, err := fn(&ledger)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	return d.saveDoc(ctx, ledgerDoc, ledger)
}
