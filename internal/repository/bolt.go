package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

var (
	bucketUsers           = []byte("users")
	bucketUsersByEmail    = []byte("users_by_email")
	bucketUserOrder       = []byte("user_order")
	bucketAssignments     = []byte("assignments")
	bucketAssignmentOrder = []byte("assignment_order")
	bucketSubmissions     = []byte("submissions")
	bucketSubmissionsByID = []byte("submissions_by_id")
)

var boltBuckets = [][]byte{
	bucketUsers,
	bucketUsersByEmail,
	bucketUserOrder,
	bucketAssignments,
	bucketAssignmentOrder,
	bucketSubmissions,
	bucketSubmissionsByID,
}

// BoltStore is the embedded single-file store used for local runs and tests.
type BoltStore struct {
	db     *bbolt.DB
	logger zerolog.Logger
}

func OpenBolt(path string, logger zerolog.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range boltBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	logger.Info().Str("path", path).Msg("Bolt store opened")

	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketAssignments) == nil {
			return errors.New("bolt store is not initialized")
		}
		return nil
	})
}

// Snapshot writes a consistent copy of the whole database file to w while
// readers and writers keep running.
func (s *BoltStore) Snapshot(w io.Writer) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to snapshot bolt store: %w", err)
	}
	return n, nil
}

func putJSON[T any](b *bbolt.Bucket, key []byte, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// getJSON returns nil when the key is absent.
func getJSON[T any](b *bbolt.Bucket, key []byte) (*T, error) {
	v := b.Get(key)
	if v == nil {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// window applies limit/offset to an already ordered slice.
func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
