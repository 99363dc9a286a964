// Package resultdb stores scan verdicts keyed by message digest. Since the
// digest is a deterministic fold of the per-part content digests, a repeat
// scan of an identical message can reuse the stored verdict.
package resultdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mjl-/bstore"

	"github.com/mailscan/mailscan/mlog"
)

var errClosed = errors.New("resultdb is closed")

// Result is one stored scan verdict.
type Result struct {
	Digest        string // Message digest, hex. Primary key.
	Score         float64
	Action        string
	SMTPMessage   string
	GtubeFound    bool
	PartsDistance float64 // Zero if not computed; see TotalWords.
	TotalWords    int     // Zero if distance was not computed.
	Scanned       time.Time
}

var DBTypes = []any{Result{}} // Stored in DB.

// DB is an open scan result database.
type DB struct {
	log *mlog.Log
	db  *bstore.DB
}

// Open opens or creates the result database at path.
func Open(ctx context.Context, log *mlog.Log, path string) (*DB, error) {
	db, err := bstore.Open(ctx, path, &bstore.Options{Timeout: 5 * time.Second, Perm: 0660}, DBTypes...)
	if err != nil {
		return nil, fmt.Errorf("open result database: %w", err)
	}
	return &DB{log: log, db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return errClosed
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Lookup returns the stored result for a digest, or nil when absent.
func (d *DB) Lookup(ctx context.Context, digest string) (*Result, error) {
	if d.db == nil {
		return nil, errClosed
	}
	r := Result{Digest: digest}
	err := d.db.Read(ctx, func(tx *bstore.Tx) error {
		return tx.Get(&r)
	})
	if err == bstore.ErrAbsent {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up result: %w", err)
	}
	return &r, nil
}

// Store inserts or replaces the result for its digest.
func (d *DB) Store(ctx context.Context, r Result) error {
	if d.db == nil {
		return errClosed
	}
	err := d.db.Write(ctx, func(tx *bstore.Tx) error {
		old := Result{Digest: r.Digest}
		if err := tx.Get(&old); err == bstore.ErrAbsent {
			return tx.Insert(&r)
		} else if err != nil {
			return err
		}
		return tx.Update(&r)
	})
	if err != nil {
		return fmt.Errorf("storing result: %w", err)
	}
	return nil
}
