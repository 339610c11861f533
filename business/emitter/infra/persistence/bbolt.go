// Package persistence implements the Emitter's append-only opportunity log
// against an embedded go.etcd.io/bbolt database.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/arbitrage-bot/business/emitter/domain"
	bolt "go.etcd.io/bbolt"
	"github.com/vmihailenco/msgpack/v5"
)

var opportunitiesBucket = []byte("opportunities")

// BoltStore persists every emitted opportunity as a msgpack-encoded value in
// a single bucket, keyed by a monotonically increasing sequence number so
// that range scans return insertion order. The payload_json field inside
// each record stays JSON (it mirrors the notifier text verbatim); msgpack is
// only the on-disk envelope, chosen over JSON for its smaller footprint on a
// file that is appended to on every detected opportunity. Durability is
// best-effort: a record that never reaches Append is simply lost on crash,
// matching spec.md §6.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path and ensures the
// opportunities bucket exists.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(opportunitiesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create opportunities bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Append implements emitter/app.PersistenceSink.
func (s *BoltStore) Append(ctx context.Context, rec domain.Record) error {
	value, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(opportunitiesBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%020d-%s", seq, rec.ID)
		return b.Put([]byte(key), value)
	})
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
