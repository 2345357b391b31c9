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

package nivasa

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/model"
)

// MockDataSource implements database.IDataSource with overridable function
// fields. Methods without an override return zero values.
type MockDataSource struct {
	MockGetLastBankTransaction        func(ctx context.Context, bankAccountID int64) (*model.BankTransaction, error)
	MockExistingDedupeKeys            func(ctx context.Context, bankAccountID int64, keys []string) (map[string]struct{}, error)
	MockInsertBankTransactions        func(ctx context.Context, batchID string, txns []*model.BankTransaction, skippedInFile, errorsCount int) (int, error)
	MockGetBatchTransactions          func(ctx context.Context, batchID string, limit, offset int) ([]model.BankTransaction, error)
	MockBankTransactionsForLedger     func(ctx context.Context, filter model.LedgerFilter) ([]model.BankTransaction, error)
	MockGetBankTransaction            func(ctx context.Context, id string) (*model.BankTransaction, error)
	MockGetBankAccount                func(ctx context.Context, id int64) (*model.BankAccount, error)
	MockCreateUploadBatch             func(ctx context.Context, batch *model.UploadBatch) error
	MockGetUploadBatch                func(ctx context.Context, batchID string) (*model.UploadBatch, error)
	MockGetRecentUploadBatches        func(ctx context.Context, bankAccountID int64, limit int) ([]model.UploadBatch, error)
	MockCreateClassifications         func(ctx context.Context, rows []*model.Classification) error
	MockGetClassification             func(ctx context.Context, id string) (*model.Classification, error)
	MockClassificationsForTransaction func(ctx context.Context, bankTxnID string, activeOnly bool) ([]model.Classification, error)
	MockActiveClassifications         func(ctx context.Context, filter model.LedgerFilter) ([]model.Classification, error)
	MockCreateCashEntry               func(ctx context.Context, entry *model.CashEntry) error
	MockGetCashEntry                  func(ctx context.Context, id string) (*model.CashEntry, error)
	MockCashEntries                   func(ctx context.Context, filter model.LedgerFilter) ([]model.CashEntry, error)
	MockDeactivateCashEntry           func(ctx context.Context, id string) error
	MockCurrentCashBalance            func(ctx context.Context, companyIDs []int64) (decimal.Decimal, error)
	MockGetEntity                     func(ctx context.Context, id int64) (*model.Entity, error)
	MockSearchEntities                func(ctx context.Context, query string, companyIDs []int64, limit int) ([]model.Entity, error)
}

func (m *MockDataSource) GetLastBankTransaction(ctx context.Context, bankAccountID int64) (*model.BankTransaction, error) {
	if m.MockGetLastBankTransaction != nil {
		return m.MockGetLastBankTransaction(ctx, bankAccountID)
	}
	return nil, nil
}

func (m *MockDataSource) ExistingDedupeKeys(ctx context.Context, bankAccountID int64, keys []string) (map[string]struct{}, error) {
	if m.MockExistingDedupeKeys != nil {
		return m.MockExistingDedupeKeys(ctx, bankAccountID, keys)
	}
	return map[string]struct{}{}, nil
}

func (m *MockDataSource) InsertBankTransactions(ctx context.Context, batchID string, txns []*model.BankTransaction, skippedInFile, errorsCount int) (int, error) {
	if m.MockInsertBankTransactions != nil {
		return m.MockInsertBankTransactions(ctx, batchID, txns, skippedInFile, errorsCount)
	}
	return len(txns), nil
}

func (m *MockDataSource) GetBatchTransactions(ctx context.Context, batchID string, limit, offset int) ([]model.BankTransaction, error) {
	if m.MockGetBatchTransactions != nil {
		return m.MockGetBatchTransactions(ctx, batchID, limit, offset)
	}
	return nil, nil
}

func (m *MockDataSource) BankTransactionsForLedger(ctx context.Context, filter model.LedgerFilter) ([]model.BankTransaction, error) {
	if m.MockBankTransactionsForLedger != nil {
		return m.MockBankTransactionsForLedger(ctx, filter)
	}
	return nil, nil
}

func (m *MockDataSource) GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error) {
	if m.MockGetBankTransaction != nil {
		return m.MockGetBankTransaction(ctx, id)
	}
	return &model.BankTransaction{TransactionID: id}, nil
}

func (m *MockDataSource) GetBankAccount(ctx context.Context, id int64) (*model.BankAccount, error) {
	if m.MockGetBankAccount != nil {
		return m.MockGetBankAccount(ctx, id)
	}
	return &model.BankAccount{ID: id}, nil
}

func (m *MockDataSource) CreateUploadBatch(ctx context.Context, batch *model.UploadBatch) error {
	if m.MockCreateUploadBatch != nil {
		return m.MockCreateUploadBatch(ctx, batch)
	}
	if batch.BatchID == "" {
		batch.BatchID = "batch_mock"
	}
	return nil
}

func (m *MockDataSource) GetUploadBatch(ctx context.Context, batchID string) (*model.UploadBatch, error) {
	if m.MockGetUploadBatch != nil {
		return m.MockGetUploadBatch(ctx, batchID)
	}
	return &model.UploadBatch{BatchID: batchID}, nil
}

func (m *MockDataSource) GetRecentUploadBatches(ctx context.Context, bankAccountID int64, limit int) ([]model.UploadBatch, error) {
	if m.MockGetRecentUploadBatches != nil {
		return m.MockGetRecentUploadBatches(ctx, bankAccountID, limit)
	}
	return nil, nil
}

func (m *MockDataSource) CreateClassifications(ctx context.Context, rows []*model.Classification) error {
	if m.MockCreateClassifications != nil {
		return m.MockCreateClassifications(ctx, rows)
	}
	return nil
}

func (m *MockDataSource) GetClassification(ctx context.Context, id string) (*model.Classification, error) {
	if m.MockGetClassification != nil {
		return m.MockGetClassification(ctx, id)
	}
	return &model.Classification{ClassificationID: id}, nil
}

func (m *MockDataSource) ClassificationsForTransaction(ctx context.Context, bankTxnID string, activeOnly bool) ([]model.Classification, error) {
	if m.MockClassificationsForTransaction != nil {
		return m.MockClassificationsForTransaction(ctx, bankTxnID, activeOnly)
	}
	return nil, nil
}

func (m *MockDataSource) ActiveClassifications(ctx context.Context, filter model.LedgerFilter) ([]model.Classification, error) {
	if m.MockActiveClassifications != nil {
		return m.MockActiveClassifications(ctx, filter)
	}
	return nil, nil
}

func (m *MockDataSource) CreateCashEntry(ctx context.Context, entry *model.CashEntry) error {
	if m.MockCreateCashEntry != nil {
		return m.MockCreateCashEntry(ctx, entry)
	}
	return nil
}

func (m *MockDataSource) GetCashEntry(ctx context.Context, id string) (*model.CashEntry, error) {
	if m.MockGetCashEntry != nil {
		return m.MockGetCashEntry(ctx, id)
	}
	return &model.CashEntry{CashEntryID: id}, nil
}

func (m *MockDataSource) CashEntries(ctx context.Context, filter model.LedgerFilter) ([]model.CashEntry, error) {
	if m.MockCashEntries != nil {
		return m.MockCashEntries(ctx, filter)
	}
	return nil, nil
}

func (m *MockDataSource) DeactivateCashEntry(ctx context.Context, id string) error {
	if m.MockDeactivateCashEntry != nil {
		return m.MockDeactivateCashEntry(ctx, id)
	}
	return nil
}

func (m *MockDataSource) CurrentCashBalance(ctx context.Context, companyIDs []int64) (decimal.Decimal, error) {
	if m.MockCurrentCashBalance != nil {
		return m.MockCurrentCashBalance(ctx, companyIDs)
	}
	return decimal.Zero, nil
}

func (m *MockDataSource) GetEntity(ctx context.Context, id int64) (*model.Entity, error) {
	if m.MockGetEntity != nil {
		return m.MockGetEntity(ctx, id)
	}
	return &model.Entity{ID: id}, nil
}

func (m *MockDataSource) SearchEntities(ctx context.Context, query string, companyIDs []int64, limit int) ([]model.Entity, error) {
	if m.MockSearchEntities != nil {
		return m.MockSearchEntities(ctx, query, companyIDs, limit)
	}
	return nil, nil
}
