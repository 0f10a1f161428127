// Package history keeps a local record of runs executed from the command
// line in an embedded Badger database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "run:"

// Entry is one finished local run.
type Entry struct {
	RunID          string    `json:"run_id"`
	Topic          string    `json:"topic"`
	Status         string    `json:"status"`
	Message        string    `json:"message"`
	FinalVideo     string    `json:"final_video,omitempty"`
	SegmentsMerged int       `json:"segments_merged"`
	SegmentCount   int       `json:"segment_count"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Store is a Badger-backed run history.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens (or creates) the history database in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a history that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts.WithLogger(quietLogger{}))
	if err != nil {
		return nil, fmt.Errorf("history: open badger: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e. A zero FinishedAt is stamped with the current time.
func (s *Store) Record(e Entry) error {
	if e.RunID == "" {
		return errors.New("history: entry needs a run id")
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = s.now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e), data)
	})
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks from the largest key carrying the prefix.
		seek := append([]byte(keyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return fmt.Errorf("history: decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Get returns the entry for runID, or false when it was never recorded.
func (s *Store) Get(runID string) (Entry, bool, error) {
	entries, err := s.List(0)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.RunID == runID {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// entryKey sorts by finish time, then run id.
func entryKey(e Entry) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", keyPrefix, e.FinishedAt.UnixNano(), e.RunID))
}

// quietLogger keeps Badger's own chatter off the CLI output.
type quietLogger struct{}

func (quietLogger) Errorf(string, ...any)   {}
func (quietLogger) Warningf(string, ...any) {}
func (quietLogger) Infof(string, ...any)    {}
func (quietLogger) Debugf(string, ...any)   {}
