package inventory

import (
	"context"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/order"
	"github.com/wms/backend/internal/domain/replenishment"
)

// TransactionScope provides transactional access to the stock repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories that take
// part in stock mutations. All repositories returned share the same
// underlying database transaction.
//
// Aggregate boundary notes:
//   - LevelRepo: the InventoryLevel aggregate. Bucket mutations go through
//     ApplyDelta, which issues a single guarded UPDATE rather than
//     read-modify-write.
//   - TransactionRepo: append-only audit records. A stock mutation and its
//     audit record must land in the same transaction.
//   - OrderRepo: order lines carry reserved quantities, so reservation
//     changes update them in the same transaction as the level rows.
//   - TaskRepo: replenishment execution moves stock and flips task status
//     as one unit.
type TransactionalRepositories interface {
	// LevelRepo returns the inventory level repository scoped to the current transaction
	LevelRepo() inventory.LevelRepository
	// TransactionRepo returns the audit transaction repository scoped to the current transaction
	TransactionRepo() inventory.TransactionRepository
	// OrderRepo returns the order repository scoped to the current transaction
	OrderRepo() order.Repository
	// TaskRepo returns the replenishment task repository scoped to the current transaction
	TaskRepo() replenishment.TaskRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests backed by in-memory repositories.
type NoOpTransactionScope struct {
	levelRepo       inventory.LevelRepository
	transactionRepo inventory.TransactionRepository
	orderRepo       order.Repository
	taskRepo        replenishment.TaskRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	levelRepo inventory.LevelRepository,
	transactionRepo inventory.TransactionRepository,
	orderRepo order.Repository,
	taskRepo replenishment.TaskRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		levelRepo:       levelRepo,
		transactionRepo: transactionRepo,
		orderRepo:       orderRepo,
		taskRepo:        taskRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// LevelRepo returns the inventory level repository.
func (s *NoOpTransactionScope) LevelRepo() inventory.LevelRepository {
	return s.levelRepo
}

// TransactionRepo returns the audit transaction repository.
func (s *NoOpTransactionScope) TransactionRepo() inventory.TransactionRepository {
	return s.transactionRepo
}

// OrderRepo returns the order repository.
func (s *NoOpTransactionScope) OrderRepo() order.Repository {
	return s.orderRepo
}

// TaskRepo returns the replenishment task repository.
func (s *NoOpTransactionScope) TaskRepo() replenishment.TaskRepository {
	return s.taskRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
