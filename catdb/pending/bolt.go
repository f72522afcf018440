package pending

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rotblauer/fieldcat/params"
	"go.etcd.io/bbolt"
)

// BoltStore keeps records in a single bbolt bucket keyed by the bucket sequence.
type BoltStore struct {
	mu sync.Mutex
	db *bbolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open pending db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(params.PendingBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func (s *BoltStore) Insert(ctx context.Context, r *Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(params.PendingBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		r.ID = int64(seq)
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return bucket.Put(itob(r.ID), b)
	})
	if err != nil {
		r.ID = 0
		return 0, err
	}
	return r.ID, nil
}

func (s *BoltStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(params.PendingBucket)
		if bucket.Get(itob(id)) == nil {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return bucket.Delete(itob(id))
	})
}

func (s *BoltStore) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(params.PendingBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if limit > 0 && len(out) >= limit {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			r := Record{}
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("pending record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(params.PendingBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
