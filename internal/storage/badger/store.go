// Package badger provides the BadgerHold-backed Record Store.
package badger

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/bolsa/internal/common"
)

// gcDiscardRatio is the value log rewrite threshold used on Close.
const gcDiscardRatio = 0.5

// Store owns the BadgerHold database shared by every partition.
type Store struct {
	db     *badgerhold.Store
	path   string
	logger *common.Logger
}

// NewStore opens (creating when absent) the database directory at path.
// Only the latest version of each key is kept; rows are upserted in place.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Badger database opened")
	return &Store{db: db, path: path, logger: logger}, nil
}

// DB returns the underlying badgerhold store.
func (s *Store) DB() *badgerhold.Store {
	return s.db
}

// update runs fn in one read-write transaction so a day's rows land together.
func (s *Store) update(fn func(tx *badger.Txn) error) error {
	return s.db.Badger().Update(fn)
}

// Close compacts the value log once and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Badger().RunValueLogGC(gcDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		s.logger.Debug().Err(err).Str("path", s.path).Msg("Value log GC skipped")
	}
	err := s.db.Close()
	s.db = nil
	return err
}
