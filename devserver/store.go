package devserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/stratosdb/pagestore/errors"
	log "github.com/stratosdb/pagestore/logger"
)

func NewInMemStore(delay time.Duration) *InMemStore {
	return &InMemStore{
		pages: map[string]pageEntry{},
		delay: delay,
	}
}

// InMemStore is a simple in-memory page and WAL store used for testing. In a
// real deployment pages would be materialized from object storage by WAL
// replay.
type InMemStore struct {
	lock       sync.RWMutex
	pages      map[string]pageEntry
	walRecords []WALRecord
	delay      time.Duration
}

type pageEntry struct {
	data []byte
	lsn  uint64
}

// WALRecord is one WAL record received from a client.
type WALRecord struct {
	LSN     uint64
	WALData []byte
}

func pageKey(spaceID uint32, pageNo uint32) string {
	return fmt.Sprintf("%d:%d", spaceID, pageNo)
}

// GetPage returns the stored page and its LSN, or ok=false if absent.
func (s *InMemStore) GetPage(spaceID uint32, pageNo uint32) ([]byte, uint64, bool) {
	s.maybeAddDelay()
	s.lock.RLock()
	defer s.lock.RUnlock()
	entry, ok := s.pages[pageKey(spaceID, pageNo)]
	if !ok {
		return nil, 0, false
	}
	return entry.data, entry.lsn, true
}

// PutPage stores a page version. Used to seed fixtures in tests.
func (s *InMemStore) PutPage(spaceID uint32, pageNo uint32, lsn uint64, data []byte) error {
	if len(data) == 0 {
		return errors.NewPageStoreErrorf(errors.InternalError, "empty page data for %d:%d", spaceID, pageNo)
	}
	s.maybeAddDelay()
	s.lock.Lock()
	defer s.lock.Unlock()
	log.Debugf("dev page store %p storing page %d:%d lsn %d length %d", s, spaceID, pageNo, lsn, len(data))
	s.pages[pageKey(spaceID, pageNo)] = pageEntry{data: data, lsn: lsn}
	return nil
}

// AppendWAL retains a streamed WAL record and returns the last applied LSN.
// Page LSNs at or below the record's LSN advance to it, standing in for real
// replay.
func (s *InMemStore) AppendWAL(record WALRecord) uint64 {
	s.maybeAddDelay()
	s.lock.Lock()
	defer s.lock.Unlock()
	s.walRecords = append(s.walRecords, record)
	for key, entry := range s.pages {
		if entry.lsn < record.LSN {
			entry.lsn = record.LSN
			s.pages[key] = entry
		}
	}
	return record.LSN
}

// WALRecordCount returns the number of retained WAL records.
func (s *InMemStore) WALRecordCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.walRecords)
}

func (s *InMemStore) maybeAddDelay() {
	if s.delay != 0 {
		time.Sleep(s.delay)
	}
}
