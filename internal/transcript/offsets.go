package transcript

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

var offsetsBucket = []byte("transcript_offsets")

// OffsetRecord is the persisted resume point for one session's transcript.
type OffsetRecord struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
}

// OffsetStore persists parser cursors across restarts so a restarted monitor
// resumes tailing instead of re-ingesting whole logs. It holds no session
// state; history itself is never persisted.
type OffsetStore struct {
	db *bolt.DB
}

func OpenOffsetStore(path string) (*OffsetStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(offsetsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &OffsetStore{db: db}, nil
}

func (s *OffsetStore) Get(sessionID string) (OffsetRecord, bool, error) {
	var record OffsetRecord
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(offsetsBucket).Get([]byte(sessionID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		found = true
		return nil
	})
	return record, found, err
}

func (s *OffsetStore) Put(sessionID, path string, offset int64) error {
	data, err := json.Marshal(OffsetRecord{Path: path, Offset: offset})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(offsetsBucket).Put([]byte(sessionID), data)
	})
}

func (s *OffsetStore) Delete(sessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(offsetsBucket).Delete([]byte(sessionID))
	})
}

func (s *OffsetStore) Close() error {
	return s.db.Close()
}
