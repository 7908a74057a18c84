package services

import (
	"time"

	"fintrack/internal/storage"
)

// Ledger bundles the services sharing one repository and change feed.
type Ledger struct {
	Feed         *ChangeFeed
	Transactions *TransactionService
	Catalog      *CatalogService
	Budgets      *BudgetService
	Recurring    *RecurringService
	Processor    *RecurringProcessor
	Auditor      *Auditor
	Dashboard    *DashboardService
}

// NewLedger wires the services. publisher may be nil, in which case
// committed writes are not broadcast.
func NewLedger(repo *storage.SQLiteRepository, publisher EventPublisher, dashboardTTL time.Duration) *Ledger {
	feed := NewChangeFeed()
	txs := NewTransactionService(repo, publisher, feed)
	return &Ledger{
		Feed:         feed,
		Transactions: txs,
		Catalog:      NewCatalogService(repo, txs, feed),
		Budgets:      NewBudgetService(repo, feed),
		Recurring:    NewRecurringService(repo),
		Processor:    NewRecurringProcessor(repo, txs),
		Auditor:      NewAuditor(repo),
		Dashboard:    NewDashboardService(repo, feed, dashboardTTL),
	}
}
