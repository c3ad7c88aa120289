// Package ddbstore is a local, BadgerDB-backed stand-in for the DynamoDB
// operations the table tools use. Table definitions are stored alongside the
// items, so separate processes opening the same directory see the same tables.
package ddbstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/acksell/ddbmold/dynamodb/ddbiface"
	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

var _ ddbiface.Client = (*Store)(nil)

// Store is a DynamoDB-compatible store backed by BadgerDB.
type Store struct {
	db *badger.DB

	mu     sync.RWMutex
	tables map[string]*tableSchema
}

type tableSchema struct {
	Definition table.TableDefinition
	Created    time.Time
}

func (t *tableSchema) encoder() *keyEncoder {
	return &keyEncoder{tableName: t.Definition.Name, keyDefs: t.Definition.KeyDefinitions}
}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// New opens the store and creates any of defs that do not exist yet.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{db: db, tables: make(map[string]*tableSchema)}
	if err := s.loadTables(); err != nil {
		db.Close()
		return nil, err
	}
	for _, def := range defs {
		if _, ok := s.tables[def.Name]; ok {
			continue
		}
		if _, err := s.createTable(def); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadTables() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = metaPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var schema tableSchema
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &schema)
			}); err != nil {
				return fmt.Errorf("load table %s: %w", it.Item().Key()[len(metaPrefix):], err)
			}
			s.tables[schema.Definition.Name] = &schema
		}
		return nil
	})
}

// createTable persists a new table definition. Callers must not hold s.mu.
func (s *Store) createTable(def table.TableDefinition) (*tableSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[def.Name]; ok {
		return nil, &types.ResourceInUseException{
			Message: ptrStr(fmt.Sprintf("Table already exists: %s", def.Name)),
		}
	}
	def.Status = ""
	schema := &tableSchema{Definition: def, Created: time.Now().UTC()}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode table %s: %w", def.Name, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(def.Name), data)
	}); err != nil {
		return nil, fmt.Errorf("store table %s: %w", def.Name, err)
	}
	s.tables[def.Name] = schema
	return schema, nil
}

func (s *Store) getTable(tableName *string) (*tableSchema, error) {
	if tableName == nil {
		return nil, fmt.Errorf("table name is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.tables[*tableName]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: ptrStr(fmt.Sprintf("Requested resource not found: Table: %s not found", *tableName)),
		}
	}
	return schema, nil
}
