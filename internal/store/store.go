// Package store owns the canonical ledger snapshot: transactions, expense
// types and export settings. Every mutation is written through a KV backend
// before it becomes visible to readers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"kasa/internal/core"
)

// Persisted record keys.
const (
	KeyTransactions   = "transactions"
	KeyExpenseTypes   = "expenseTypes"
	KeyExportSettings = "excelSettings"
)

// DefaultExpenseTypes seeds an empty ledger.
var DefaultExpenseTypes = []string{"Faturalar", "Kira", "Maaşlar", "Diğer"}

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrExpenseTypeNotFound  = errors.New("expense type not found")
	ErrExpenseTypeInUse     = errors.New("expense type is used by existing expenses")
	ErrDuplicateExpenseType = errors.New("expense type already exists")
	ErrEmptyName            = errors.New("expense type name cannot be empty")
	ErrReadOnly             = errors.New("store is read-only")
)

// KV is the persistence port: opaque values under string keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Snapshot is an immutable copy of the ledger at a given version.
type Snapshot struct {
	Version      uint64
	Transactions []core.Transaction
	ExpenseTypes []core.ExpenseType
	Settings     core.ExportSettings
}

type Store struct {
	kv       KV
	newID    func() string
	readOnly bool

	mu           sync.RWMutex
	version      uint64
	transactions []core.Transaction
	expenseTypes []core.ExpenseType
	settings     core.ExportSettings
}

type Option func(*Store)

// ReadOnly makes every mutation fail with ErrReadOnly. Load still seeds the
// default expense types in memory but does not write them back.
func ReadOnly() Option {
	return func(s *Store) { s.readOnly = true }
}

// WithIDGenerator replaces the UUID generator, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func New(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads all three records from the backend. Missing records fall back
// to defaults; default expense types are written back so their ids stay
// stable across restarts.
func (s *Store) Load(ctx context.Context) error {
	var records []core.Record
	if _, err := s.read(ctx, KeyTransactions, &records); err != nil {
		return err
	}
	txs, err := core.FromRecords(records)
	if err != nil {
		return fmt.Errorf("decode %s: %w", KeyTransactions, err)
	}

	var types []core.ExpenseType
	found, err := s.read(ctx, KeyExpenseTypes, &types)
	if err != nil {
		return err
	}
	if !found {
		types = make([]core.ExpenseType, 0, len(DefaultExpenseTypes))
		for _, name := range DefaultExpenseTypes {
			types = append(types, core.ExpenseType{ID: s.newID(), Name: name})
		}
		if !s.readOnly {
			if err := s.write(ctx, KeyExpenseTypes, types); err != nil {
				return err
			}
		}
	}

	var settings core.ExportSettings
	if _, err := s.read(ctx, KeyExportSettings, &settings); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = txs
	s.expenseTypes = types
	s.settings = settings
	s.version++
	return nil
}

func (s *Store) read(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	if s.readOnly {
		return ErrReadOnly
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Snapshot returns a consistent copy of the whole ledger.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Version:      s.version,
		Transactions: slices.Clone(s.transactions),
		ExpenseTypes: slices.Clone(s.expenseTypes),
		Settings:     s.settings,
	}
}

// Version increases with every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Transactions returns the snapshot, newest first.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.transactions)
}

func (s *Store) ExpenseTypes() []core.ExpenseType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.expenseTypes)
}

func (s *Store) ExportSettings() core.ExportSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) Transaction(id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfTransaction(id)
	if i < 0 {
		return nil, ErrTransactionNotFound
	}
	return s.transactions[i], nil
}

// AddTransaction validates tx, gives it a fresh id and prepends it.
func (s *Store) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(tx); err != nil {
		return nil, err
	}
	tx = core.WithID(tx, s.newID())
	next := append([]core.Transaction{tx}, s.transactions...)
	if err := s.commitTransactions(ctx, next); err != nil {
		return nil, err
	}
	return tx, nil
}

// UpdateTransaction replaces the transaction with the given id in place.
// The variant may change.
func (s *Store) UpdateTransaction(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfTransaction(id)
	if i < 0 {
		return nil, ErrTransactionNotFound
	}
	if err := s.check(tx); err != nil {
		return nil, err
	}
	tx = core.WithID(tx, id)
	next := slices.Clone(s.transactions)
	next[i] = tx
	if err := s.commitTransactions(ctx, next); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfTransaction(id)
	if i < 0 {
		return ErrTransactionNotFound
	}
	next := slices.Delete(slices.Clone(s.transactions), i, i+1)
	return s.commitTransactions(ctx, next)
}

// check validates tx and, for expenses, that the type exists.
func (s *Store) check(tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if ex, ok := tx.(core.Expense); ok && s.indexOfType(ex.ExpenseTypeID) < 0 {
		return &core.ValidationError{Field: "expenseType", Err: ErrExpenseTypeNotFound}
	}
	return nil
}

func (s *Store) commitTransactions(ctx context.Context, next []core.Transaction) error {
	if err := s.write(ctx, KeyTransactions, core.ToRecords(next)); err != nil {
		return err
	}
	s.transactions = next
	s.version++
	return nil
}

func (s *Store) AddExpenseType(ctx context.Context, name string) (core.ExpenseType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, err := s.checkName(name, "")
	if err != nil {
		return core.ExpenseType{}, err
	}
	et := core.ExpenseType{ID: s.newID(), Name: name}
	next := append(slices.Clone(s.expenseTypes), et)
	if err := s.commitTypes(ctx, next); err != nil {
		return core.ExpenseType{}, err
	}
	return et, nil
}

func (s *Store) UpdateExpenseType(ctx context.Context, id, name string) (core.ExpenseType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfType(id)
	if i < 0 {
		return core.ExpenseType{}, ErrExpenseTypeNotFound
	}
	name, err := s.checkName(name, id)
	if err != nil {
		return core.ExpenseType{}, err
	}
	next := slices.Clone(s.expenseTypes)
	next[i].Name = name
	if err := s.commitTypes(ctx, next); err != nil {
		return core.ExpenseType{}, err
	}
	return next[i], nil
}

// DeleteExpenseType refuses to remove a type that any expense references.
func (s *Store) DeleteExpenseType(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfType(id)
	if i < 0 {
		return ErrExpenseTypeNotFound
	}
	for _, tx := range s.transactions {
		if ex, ok := tx.(core.Expense); ok && ex.ExpenseTypeID == id {
			return ErrExpenseTypeInUse
		}
	}
	next := slices.Delete(slices.Clone(s.expenseTypes), i, i+1)
	return s.commitTypes(ctx, next)
}

// checkName trims name and enforces case-insensitive uniqueness, ignoring
// the type being renamed.
func (s *Store) checkName(name, self string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	for _, et := range s.expenseTypes {
		if et.ID != self && strings.EqualFold(et.Name, name) {
			return "", ErrDuplicateExpenseType
		}
	}
	return name, nil
}

func (s *Store) commitTypes(ctx context.Context, next []core.ExpenseType) error {
	if err := s.write(ctx, KeyExpenseTypes, next); err != nil {
		return err
	}
	s.expenseTypes = next
	s.version++
	return nil
}

func (s *Store) SetExportSettings(ctx context.Context, settings core.ExportSettings) (core.ExportSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.FilePath = strings.TrimSpace(settings.FilePath)
	if err := s.write(ctx, KeyExportSettings, settings); err != nil {
		return core.ExportSettings{}, err
	}
	s.settings = settings
	s.version++
	return settings, nil
}

func (s *Store) indexOfTransaction(id string) int {
	return slices.IndexFunc(s.transactions, func(tx core.Transaction) bool {
		return tx.Head().ID == id
	})
}

func (s *Store) indexOfType(id string) int {
	return slices.IndexFunc(s.expenseTypes, func(et core.ExpenseType) bool {
		return et.ID == id
	})
}
