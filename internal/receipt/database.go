package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucketName = "receipts"
	storeBucketName   = "stores"
	unitBucketName    = "units"

	// stores and units live as one JSON array under a fixed key
	referenceListKey = "list"
)

// Sentinel errors for lookups and reference-list mutations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Default reference lists seeded on first open.
var (
	defaultStores = []string{"Costco", "Kroger", "Target", "Walmart", "Whole Foods"}
	defaultUnits  = []string{"ct", "ea", "g", "kg", "l", "lb", "lbs", "ml", "oz", "pcs"}
)

// DB defines the interface for database operations
type DB interface {
	// SaveReceipt saves or overwrites a receipt
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts; callers must not rely on a
	// particular order being stable across reloads
	ListReceipts() ([]*Receipt, error)

	// DeleteReceipt removes a receipt from the database
	DeleteReceipt(id string) error

	// ListStores returns the store reference list
	ListStores() ([]string, error)

	// SaveStores replaces the store reference list
	SaveStores(stores []string) error

	// ListUnits returns the unit reference list
	ListUnits() ([]string, error)

	// SaveUnits replaces the unit reference list
	SaveUnits(units []string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance, creating buckets and seeding
// the default store and unit lists on first open.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(receiptBucketName)); err != nil {
			return err
		}
		if err := seedReferenceList(tx, storeBucketName, defaultStores); err != nil {
			return err
		}
		return seedReferenceList(tx, unitBucketName, defaultUnits)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// seedReferenceList creates the bucket and writes the default list when
// no list has been saved yet.
func seedReferenceList(tx *bbolt.Tx, bucketName string, defaults []string) error {
	bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
	if err != nil {
		return err
	}
	if bucket.Get([]byte(referenceListKey)) != nil {
		return nil
	}
	data, err := json.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("marshaling defaults: %w", err)
	}
	return bucket.Put([]byte(referenceListKey), data)
}

// SaveReceipt saves a receipt to the database
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return bucket.Put([]byte(receipt.ID), data)
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("receipt %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt from the database
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("receipt %s: %w", id, ErrNotFound)
		}
		return bucket.Delete([]byte(id))
	})
}

// ListStores returns the store reference list
func (b *BoltDB) ListStores() ([]string, error) {
	return b.listReference(storeBucketName)
}

// SaveStores replaces the store reference list
func (b *BoltDB) SaveStores(stores []string) error {
	return b.saveReference(storeBucketName, stores)
}

// ListUnits returns the unit reference list
func (b *BoltDB) ListUnits() ([]string, error) {
	return b.listReference(unitBucketName)
}

// SaveUnits replaces the unit reference list
func (b *BoltDB) SaveUnits(units []string) error {
	return b.saveReference(unitBucketName, units)
}

func (b *BoltDB) listReference(bucketName string) ([]string, error) {
	var values []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(referenceListKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &values)
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", bucketName, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func (b *BoltDB) saveReference(bucketName string, values []string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", bucketName, err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(referenceListKey), data)
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
