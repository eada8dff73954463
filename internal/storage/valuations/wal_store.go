// Package valuations journals reported valuation rows in a write-ahead log.
package valuations

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultDir   = "./wal/valuations"
	segmentLimit = 1000
	maxSegments  = 20

	keyPrefix = "valuation_"
)

// Record one reported valuation.
type Record struct {
	RunID            string        `json:"run_id"`
	Seq              int           `json:"seq"`
	Label            string        `json:"label"`
	Engine           string        `json:"engine"`
	Value            float64       `json:"value"`
	ErrorEstimate    float64       `json:"error_estimate,omitempty"`
	HasErrorEstimate bool          `json:"has_error_estimate"`
	Reference        float64       `json:"reference"`
	Error            string        `json:"error,omitempty"`
	Elapsed          time.Duration `json:"elapsed"`
	At               time.Time     `json:"at"`
}

// Entry record together with its journal index.
type Entry struct {
	Index  uint64 `json:"index"`
	Record Record `json:"record"`
}

// WALStore persists valuation records in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens or creates the journal in dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create valuation journal dir")
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "valuation_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init valuation WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends rec and returns its journal index.
func (s *WALStore) Save(rec Record) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("valuation store is not initialized")
	}
	if rec.RunID == "" {
		return 0, errors.New("valuation record run id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, errors.Wrap(err, "marshal valuation record")
	}

	key := fmt.Sprintf("%s%s_%d", keyPrefix, rec.RunID, rec.Seq)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return 0, errors.Wrap(err, "write valuation record")
	}
	return nextIndex, nil
}

// RecordsAfter returns every record written after the given index.
// Entries dropped by segment rotation are skipped.
func (s *WALStore) RecordsAfter(index uint64) ([]Entry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("valuation store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	entries := make([]Entry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, keyPrefix) {
			continue
		}

		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, errors.Wrapf(err, "decode valuation record %d", idx)
		}
		entries = append(entries, Entry{Index: idx, Record: rec})
	}

	return entries, nil
}

// CurrentIndex returns the latest journal index.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("valuation store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
