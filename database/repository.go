/*
Copyright 2025 Nivasa Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	bankTransaction // Statement rows and dedup lookups
	uploadBatch     // Upload batch audit records
	classification  // Append-only classification log
	cashEntry       // Manual cash ledger
	entity          // Dimension lookups
}

// bankTransaction defines methods for handling imported statement rows.
type bankTransaction interface {
	GetLastBankTransaction(ctx context.Context, bankAccountID int64) (*model.BankTransaction, error)                  // Latest stored row for an account, nil when none
	ExistingDedupeKeys(ctx context.Context, bankAccountID int64, keys []string) (map[string]struct{}, error)          // Subset of keys already stored for the account
	InsertBankTransactions(ctx context.Context, batchID string, txns []*model.BankTransaction, skippedInFile, errorsCount int) (int, error) // Inserts rows and finalizes batch counts in one tx, skipping dedupe conflicts
	GetBatchTransactions(ctx context.Context, batchID string, limit, offset int) ([]model.BankTransaction, error)     // Rows belonging to an upload batch
	BankTransactionsForLedger(ctx context.Context, filter model.LedgerFilter) ([]model.BankTransaction, error)        // Raw rows for the reconciler fallback
	GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error)                                // Retrieves a single row by transaction ID
	GetBankAccount(ctx context.Context, id int64) (*model.BankAccount, error)                                         // Retrieves an account for scoping checks
}

// uploadBatch defines methods for the upload audit trail.
type uploadBatch interface {
	CreateUploadBatch(ctx context.Context, batch *model.UploadBatch) error                                   // Persists a batch record, including rejected ones
	GetUploadBatch(ctx context.Context, batchID string) (*model.UploadBatch, error)                          // Retrieves a batch by ID
	GetRecentUploadBatches(ctx context.Context, bankAccountID int64, limit int) ([]model.UploadBatch, error) // Most recent batches for an account
}

// classification defines methods for the append-only classification log.
type classification interface {
	CreateClassifications(ctx context.Context, rows []*model.Classification) error                                      // Inserts split rows atomically
	GetClassification(ctx context.Context, id string) (*model.Classification, error)                                    // Retrieves a classification by ID
	ClassificationsForTransaction(ctx context.Context, bankTxnID string, activeOnly bool) ([]model.Classification, error) // Rows for one bank transaction
	ActiveClassifications(ctx context.Context, filter model.LedgerFilter) ([]model.Classification, error)               // Active rows with dimension names joined in
}

// cashEntry defines methods for the manual cash ledger.
type cashEntry interface {
	CreateCashEntry(ctx context.Context, entry *model.CashEntry) error                          // Inserts an entry, computing its running balance
	GetCashEntry(ctx context.Context, id string) (*model.CashEntry, error)                      // Retrieves an entry by ID
	CashEntries(ctx context.Context, filter model.LedgerFilter) ([]model.CashEntry, error)      // Active entries with dimension names joined in
	DeactivateCashEntry(ctx context.Context, id string) error                                   // Soft-deletes an entry
	CurrentCashBalance(ctx context.Context, companyIDs []int64) (decimal.Decimal, error)        // Balance of the latest active entry
}

// entity defines dimension lookup methods.
type entity interface {
	GetEntity(ctx context.Context, id int64) (*model.Entity, error)
	SearchEntities(ctx context.Context, query string, companyIDs []int64, limit int) ([]model.Entity, error)
}
