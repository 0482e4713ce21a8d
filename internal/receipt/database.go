package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const validationsBucket = "validations"

// ErrNotFound is returned when a validation record does not exist.
var ErrNotFound = errors.New("validation not found")

// DB defines the interface for the validation history
type DB interface {
	// SaveValidation stores a validation record
	SaveValidation(v *Validation) error

	// GetValidation retrieves a validation record by ID
	GetValidation(id string) (*Validation, error)

	// ListValidations returns all records, newest first
	ListValidations() ([]*Validation, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the history database at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(validationsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveValidation stores a validation record, replacing one with the same ID
func (b *BoltDB) SaveValidation(v *Validation) error {
	if v.ID == "" {
		return fmt.Errorf("validation has no id")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling validation: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(validationsBucket)).Put([]byte(v.ID), data)
	})
}

// GetValidation retrieves a validation record by ID
func (b *BoltDB) GetValidation(id string) (*Validation, error) {
	var v *Validation
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(validationsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListValidations returns all validation records, newest first
func (b *BoltDB) ListValidations() ([]*Validation, error) {
	validations := make([]*Validation, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(validationsBucket)).ForEach(func(k, data []byte) error {
			var v Validation
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("unmarshaling validation %s: %w", k, err)
			}
			validations = append(validations, &v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(validations, func(i, j int) bool {
		return validations[i].CreatedAt.After(validations[j].CreatedAt)
	})
	return validations, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
