package knowledge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

//go:embed default.json
var defaultBaseJSON []byte

var (
	bucketName = []byte("knowledge")
	baseKey    = []byte("base")
)

// Store persists the knowledge base as a single JSON value in a bbolt
// bucket. It is fail-open: persistence errors are logged and the shipped
// default (or the in-memory value) keeps the pipeline going.
type Store struct {
	db *bolt.DB
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure data dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init knowledge bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted base, unless forceDefault is true or nothing is
// persisted yet, in which case the shipped default is loaded and persisted.
func (s *Store) Load(forceDefault bool) Base {
	if !forceDefault {
		var raw []byte
		err := s.db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket(bucketName).Get(baseKey); v != nil {
				raw = append(raw, v...)
			}
			return nil
		})
		if err != nil {
			log.Printf("failed to read knowledge base: %v", err)
		}
		if len(raw) > 0 {
			var base Base
			if err := json.Unmarshal(raw, &base); err != nil {
				log.Printf("failed to decode stored knowledge base: %v", err)
			} else {
				return base
			}
		}
	}

	base := DefaultBase()
	if err := s.Save(base); err != nil {
		log.Printf("failed to persist default knowledge base: %v", err)
	}
	return base
}

// Save persists the base verbatim, overwriting the stored value.
func (s *Store) Save(base Base) error {
	raw, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("encode knowledge base: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(baseKey, raw)
	})
	if err != nil {
		return fmt.Errorf("write knowledge base: %w", err)
	}
	return nil
}

// Reset discards all user mutations and reloads the shipped default set.
func (s *Store) Reset() Base {
	return s.Load(true)
}

// DefaultBase decodes the shipped default set. The embedded JSON is fixed at
// build time, so a decode failure is a programming error.
func DefaultBase() Base {
	var base Base
	if err := json.Unmarshal(defaultBaseJSON, &base); err != nil {
		log.Printf("failed to decode embedded knowledge base: %v", err)
		return Base{}
	}
	return base
}
