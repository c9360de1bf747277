// Package db is the document store: conversations, their messages and their
// reports in SQLite, plus snapshot subscriptions.
package db

import (
	"crypto/rand"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/mahader/internal/errors"
)

// Store wraps the database and fans out snapshots to subscribers.
type Store struct {
	db  *sql.DB
	hub *hub

	idMu    sync.Mutex
	entropy io.Reader

	// now returns the current time in milliseconds; replaced in tests.
	now func() int64
}

// NewStore creates a Store over an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		hub:     newHub(),
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Open initializes the database under baseDir and returns a Store over it.
func Open(baseDir string) (*Store, error) {
	database, err := Init(baseDir)
	if err != nil {
		return nil, err
	}
	return NewStore(database), nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// newID generates a new ULID. IDs from one Store sort in creation order.
func (s *Store) newID() (string, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), s.entropy)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id.String(), nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
