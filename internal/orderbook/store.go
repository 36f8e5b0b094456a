package orderbook

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const eventsBucket = "orderbook:events"

// Store persists the replay log in bbolt, keyed by big-endian seq so a
// bucket cursor walks events in feed order. Reopening a Store and replaying
// it rebuilds the exact derived state the book held before shutdown.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) the event log at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(eventsBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create events bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Append writes one event. Appending the same seq twice overwrites with
// identical content, which keeps replay idempotent.
func (s *Store) Append(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(eventsBucket)).Put(seqKey(ev.Seq), data)
	})
}

// Replay streams every stored event, in seq order, through fn.
func (s *Store) Replay(fn func(Event) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(eventsBucket)).ForEach(func(_, v []byte) error {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("decode stored event: %w", err)
			}
			return fn(ev)
		})
	})
}

// LastSeq returns the highest stored seq, zero when the log is empty.
func (s *Store) LastSeq() (uint64, error) {
	var last uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket([]byte(eventsBucket)).Cursor().Last()
		if k != nil {
			last = binary.BigEndian.Uint64(k)
		}
		return nil
	})
	return last, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
