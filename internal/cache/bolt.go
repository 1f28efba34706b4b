package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var usersBucket = []byte("usersv1")

var tracer = otel.Tracer("github.com/tullo/scimd/internal/cache")

// BoltStore is a Store backed by a boltdb file.
type BoltStore struct {
	path    string
	timeout time.Duration
	db      *bolt.DB
	logger  *zap.Logger
}

// NewBoltStore returns a BoltStore for the file at path. Call Open before use.
func NewBoltStore(path string) *BoltStore {
	return &BoltStore{
		path:    path,
		timeout: time.Second,
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the logger on the store.
func (s *BoltStore) WithLogger(l *zap.Logger) {
	s.logger = l
}

// WithTimeout sets how long Open waits for the file lock.
func (s *BoltStore) WithTimeout(d time.Duration) {
	s.timeout = d
}

// Open creates the boltdb file if it doesn't exist and opens it otherwise.
func (s *BoltStore) Open(ctx context.Context) error {
	_, span := tracer.Start(ctx, "BoltStore.Open")
	defer span.End()

	// Ensure the required directory structure exists.
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Wrapf(err, "unable to create directory %s", s.path)
	}

	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		return errors.Wrap(err, "unable to open boltdb file")
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usersBucket)
		return err
	}); err != nil {
		db.Close()
		return errors.Wrap(err, "creating users bucket")
	}
	s.db = db

	s.logger.Info("Resources opened", zap.String("path", s.path))
	return nil
}

// Close the connection to the bolt database.
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *BoltStore) Set(ctx context.Context, key string, value []byte) error {
	_, span := tracer.Start(ctx, "BoltStore.Set")
	defer span.End()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(usersBucket).Put([]byte(key), value)
	})
}

func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := tracer.Start(ctx, "BoltStore.Get")
	defer span.End()

	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(usersBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the life of the transaction.
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Exists(ctx context.Context, key string) (bool, error) {
	_, span := tracer.Start(ctx, "BoltStore.Exists")
	defer span.End()

	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(usersBucket).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}

func (s *BoltStore) Delete(ctx context.Context, key string) (int, error) {
	_, span := tracer.Start(ctx, "BoltStore.Delete")
	defer span.End()

	var n int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(usersBucket)
		if b.Get([]byte(key)) == nil {
			return nil
		}
		n = 1
		return b.Delete([]byte(key))
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
