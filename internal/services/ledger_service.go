package services

import (
	"context"
	"errors"
	"fmt"

	"kasa/internal/amqp"
	"kasa/internal/core"
	"kasa/internal/log"
	"kasa/internal/store"
)

// Publisher announces that the exports are stale.
type Publisher interface {
	PublishExportRequest(ctx context.Context, reason string) error
	Close() error
}

// LedgerService orchestrates ledger mutations across the store and AMQP.
// Reads go straight to the store snapshot.
type LedgerService struct {
	store     *store.Store
	publisher Publisher
	cleanup   func() error
	logger    *log.Logger
}

type Option func(*LedgerService)

// WithPublisher enables export requests after every mutation.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithCleanup registers a function run by Close, usually the backend's.
func WithCleanup(fn func() error) Option {
	return func(s *LedgerService) { s.cleanup = fn }
}

func NewLedgerService(st *store.Store, logger *log.Logger, opts ...Option) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &LedgerService{store: st, logger: logger.WithComponent(log.ComponentLedger)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) Store() *store.Store {
	return s.store
}

func (s *LedgerService) Snapshot() store.Snapshot {
	return s.store.Snapshot()
}

func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.store.AddTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	s.logTransaction(ctx, log.OpCreate, saved)
	s.requestExport(ctx, amqp.ReasonMutation)
	return saved, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.store.UpdateTransaction(ctx, id, tx)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	s.logTransaction(ctx, log.OpUpdate, saved)
	s.requestExport(ctx, amqp.ReasonMutation)
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete, log.FieldTransactionID, id)
	s.requestExport(ctx, amqp.ReasonMutation)
	return nil
}

func (s *LedgerService) CreateExpenseType(ctx context.Context, name string) (core.ExpenseType, error) {
	et, err := s.store.AddExpenseType(ctx, name)
	if err != nil {
		return core.ExpenseType{}, fmt.Errorf("create expense type: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense type created",
		log.FieldOperation, log.OpCreate, log.FieldExpenseType, et.Name)
	s.requestExport(ctx, amqp.ReasonMutation)
	return et, nil
}

func (s *LedgerService) RenameExpenseType(ctx context.Context, id, name string) (core.ExpenseType, error) {
	et, err := s.store.UpdateExpenseType(ctx, id, name)
	if err != nil {
		return core.ExpenseType{}, fmt.Errorf("rename expense type: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense type renamed",
		log.FieldOperation, log.OpUpdate, log.FieldExpenseType, et.Name)
	s.requestExport(ctx, amqp.ReasonMutation)
	return et, nil
}

func (s *LedgerService) DeleteExpenseType(ctx context.Context, id string) error {
	if err := s.store.DeleteExpenseType(ctx, id); err != nil {
		return fmt.Errorf("delete expense type: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense type deleted", log.FieldOperation, log.OpDelete, "id", id)
	s.requestExport(ctx, amqp.ReasonMutation)
	return nil
}

func (s *LedgerService) SetExportSettings(ctx context.Context, settings core.ExportSettings) (core.ExportSettings, error) {
	saved, err := s.store.SetExportSettings(ctx, settings)
	if err != nil {
		return core.ExportSettings{}, fmt.Errorf("save export settings: %w", err)
	}
	s.logger.InfoContext(ctx, "Export settings saved", log.FieldExportPath, saved.FilePath)
	return saved, nil
}

// RequestExport queues a manual export. Unlike mutation-triggered requests
// the publish error is returned to the caller.
func (s *LedgerService) RequestExport(ctx context.Context) error {
	if s.publisher == nil {
		return ErrExportUnavailable
	}
	if err := s.publisher.PublishExportRequest(ctx, amqp.ReasonManual); err != nil {
		return fmt.Errorf("publish export request: %w", err)
	}
	return nil
}

// ErrExportUnavailable is returned when no queue is configured.
var ErrExportUnavailable = errors.New("export queue not configured")

// requestExport never fails the caller: the mutation is already durable.
func (s *LedgerService) requestExport(ctx context.Context, reason string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping export request")
		return
	}
	if err := s.publisher.PublishExportRequest(ctx, reason); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish export request",
			log.FieldReason, reason, log.FieldError, err)
	}
}

func (s *LedgerService) logTransaction(ctx context.Context, op string, tx core.Transaction) {
	fields := log.NewFields().
		WithOperation(op).
		WithTransaction(tx.Head().ID, string(tx.Kind()), tx.Value().Cents)
	s.logger.InfoContext(ctx, "Transaction saved", fields.ToSlice()...)
}

// Close closes the publisher and the backend.
func (s *LedgerService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if s.cleanup != nil {
		if err := s.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}

	return nil
}
