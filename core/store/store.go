package store

import (
	"os"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v2"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/oxicloud/drive-daemon/log"
)

const DefaultRootDir = "~/.oxicloud-drive"
const BadgerFileName = "db"

var (
	ErrNotOpen = errors.New("database has not been opened yet")

	// ErrKeyNotFound is returned by Get and friends for missing keys.
	ErrKeyNotFound = badger.ErrKeyNotFound
)

type store struct {
	rootDir string
	db      *badger.DB
	isOpen  bool
}

// Store is the daemon's durable key/value store. The drive subsystem keeps
// its persisted configuration (auto-mount flag, last mount point) here under
// platform-prefixed keys. Shutdown makes it usable as an app component.
type Store interface {
	Open() error
	Close() error
	Shutdown() error
	IsOpen() bool
	Set(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Remove(key []byte) error
	SetString(key string, value string) error
	GetString(key string) (string, error)
	SetBool(key string, value bool) error
	GetBool(key string) (bool, error)
}

type storeOptions struct {
	rootDir string
}

var defaultStoreOptions = storeOptions{
	rootDir: DefaultRootDir,
}

type Option func(o *storeOptions)

// Helper function for setting store path
func WithPath(path string) Option {
	return func(o *storeOptions) {
		if path != "" {
			o.rootDir = path
		}
	}
}

func New(opts ...Option) Store {
	o := defaultStoreOptions
	for _, opt := range opts {
		opt(&o)
	}

	log.Debug("using path " + o.rootDir + " for store")

	return &store{
		rootDir: o.rootDir,
		isOpen:  false,
	}
}

// IsNotFound reports whether err indicates a missing key rather than a
// store failure.
func IsNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}

func (store *store) Open() error {
	if store.isOpen {
		return errors.New("tried to open already open database")
	}

	rootDir := filepath.Join(store.rootDir, BadgerFileName)

	if home, err := homedir.Dir(); err == nil {
		// If the root directory contains ~, we replace it with the actual home directory
		rootDir = strings.Replace(rootDir, "~", home, 1)
	}

	// We create the directory in case it doesn't exist yet
	if err := os.MkdirAll(rootDir, os.ModePerm); err != nil {
		return err
	}

	db, err := badger.Open(badger.DefaultOptions(rootDir))
	if err != nil {
		return err
	}

	store.db = db
	store.isOpen = true

	return nil
}

func (store *store) IsOpen() bool {
	return store.isOpen
}

func (store *store) Close() error {
	if !store.isOpen {
		return errors.New("tried to close a not yet opened database")
	}

	store.isOpen = false

	return store.db.Close()
}

// Shutdown implements the app component contract. Closing an already closed
// store is not an error here.
func (store *store) Shutdown() error {
	if !store.isOpen {
		return nil
	}

	return store.Close()
}

func (store *store) getDb() (*badger.DB, error) {
	if !store.isOpen {
		return nil, ErrNotOpen
	}

	return store.db, nil
}

// Stores a key/value pair in the db.
func (store *store) Set(key []byte, value []byte) error {
	db, err := store.getDb()
	if err != nil {
		return err
	}

	return db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, value))
	})
}

// Given a key, retrieves the stored value. If the key is not found returns
// an error for which IsNotFound reports true.
func (store *store) Get(key []byte) ([]byte, error) {
	db, err := store.getDb()
	if err != nil {
		return nil, err
	}

	var valCopy []byte

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			valCopy = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return valCopy, nil
}

// Removes a key from the db. Removing a missing key is not an error.
func (store *store) Remove(key []byte) error {
	db, err := store.getDb()
	if err != nil {
		return err
	}

	return db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (store *store) SetString(key string, value string) error {
	return store.Set([]byte(key), []byte(value))
}

func (store *store) GetString(key string) (string, error) {
	val, err := store.Get([]byte(key))
	if err != nil {
		return "", err
	}

	return string(val), nil
}

func (store *store) SetBool(key string, value bool) error {
	v := "false"
	if value {
		v = "true"
	}

	return store.SetString(key, v)
}

func (store *store) GetBool(key string) (bool, error) {
	val, err := store.GetString(key)
	if err != nil {
		return false, err
	}

	return val == "true", nil
}
