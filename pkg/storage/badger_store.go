package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"company-crawler/pkg/log"
	"company-crawler/pkg/models"
	"company-crawler/pkg/utils"
)

const (
	pageKeyPrefix = "page:"      // Prefix for company/section keys in DB
	historyDBDir  = "history_db" // Subdirectory name within stateDir for Badger DB files
)

// HistoryStore records the last observed fingerprint of every saved page so a
// later run can tell whether a section's content changed. Unlike the output
// directory, the store survives across runs by design.
type HistoryStore struct {
	db  *badger.DB
	log *logrus.Entry
	ctx context.Context
}

// NewHistoryStore opens (or creates) the crawl-history database under
// stateDir.
func NewHistoryStore(ctx context.Context, stateDir string, logger *logrus.Entry) (*HistoryStore, error) {
	dbPath := filepath.Join(stateDir, historyDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %v", utils.ErrFilesystem, dbPath, err)
	}
	logger.Infof("Opening crawl-history database at: %s", dbPath)

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1) // Only the latest fingerprint matters

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %v", utils.ErrDatabase, dbPath, err)
	}
	return &HistoryStore{db: db, log: logger, ctx: ctx}, nil
}

func pageKey(companyID string, section models.Section) []byte {
	return []byte(pageKeyPrefix + companyID + "/" + string(section))
}

// GetPage returns the stored fingerprint for a company section. The boolean
// reports whether any history exists.
func (s *HistoryStore) GetPage(companyID string, section models.Section) (models.PageHistoryEntry, bool, error) {
	var entry models.PageHistoryEntry
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(companyID, section))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return models.PageHistoryEntry{}, false, fmt.Errorf("%w: reading history for %s/%s: %v",
			utils.ErrDatabase, companyID, section, err)
	}
	return entry, found, nil
}

// PutPage stores the fingerprint for a company section, overwriting any
// previous entry.
func (s *HistoryStore) PutPage(companyID string, section models.Section, entry models.PageHistoryEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshaling history for %s/%s: %v", utils.ErrDatabase, companyID, section, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pageKey(companyID, section), value)
	})
	if err != nil {
		return fmt.Errorf("%w: writing history for %s/%s: %v", utils.ErrDatabase, companyID, section, err)
	}
	return nil
}

// RunGC runs Badger's value-log garbage collection periodically until the
// context is cancelled.
func (s *HistoryStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Warnf("Badger value log GC: %v", err)
			}
		}
	}
}

// Close closes the underlying database.
func (s *HistoryStore) Close() error {
	s.log.Info("Closing crawl-history database")
	return s.db.Close()
}
