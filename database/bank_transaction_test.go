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
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nivasa/nivasa/model"
)

func newTestDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Datasource{Conn: db}, mock
}

func bankTxnRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"transaction_id", "bank_account_id", "upload_batch_id", "transaction_date",
		"narration", "credit_amount", "debit_amount", "balance_amount",
		"utr_number", "signed_amount", "dedupe_key", "source", "created_at",
	})
}

func TestGetLastBankTransaction_NoneStored(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT (.+) FROM bank_transactions").
		WithArgs(int64(7)).
		WillReturnRows(bankTxnRows())

	txn, err := ds.GetLastBankTransaction(context.Background(), 7)
	assert.NoError(t, err)
	assert.Nil(t, txn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastBankTransaction_Success(t *testing.T) {
	ds, mock := newTestDatasource(t)

	date := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	rows := bankTxnRows().AddRow(
		"btxn_1", int64(7), "batch_1", date,
		"closing row", "500.00", nil, "1300.00",
		"UTR999", "500.00", "abc", model.SourceBank, time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM bank_transactions").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	txn, err := ds.GetLastBankTransaction(context.Background(), 7)
	assert.NoError(t, err)
	if assert.NotNil(t, txn) {
		assert.Equal(t, "btxn_1", txn.TransactionID)
		assert.Equal(t, "1300.00", txn.BalanceAmount.StringFixed(2))
		if assert.NotNil(t, txn.CreditAmount) {
			assert.Equal(t, "500.00", txn.CreditAmount.StringFixed(2))
		}
		assert.Nil(t, txn.DebitAmount)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingDedupeKeys_EmptyInput(t *testing.T) {
	ds, _ := newTestDatasource(t)

	existing, err := ds.ExistingDedupeKeys(context.Background(), 7, nil)
	assert.NoError(t, err)
	assert.Empty(t, existing)
}

func TestExistingDedupeKeys_ReturnsSubset(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT dedupe_key FROM bank_transactions").
		WillReturnRows(sqlmock.NewRows([]string{"dedupe_key"}).AddRow("k1").AddRow("k3"))

	existing, err := ds.ExistingDedupeKeys(context.Background(), 7, []string{"k1", "k2", "k3"})
	assert.NoError(t, err)
	assert.Len(t, existing, 2)
	_, ok := existing["k1"]
	assert.True(t, ok)
	_, ok = existing["k2"]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBankTransactions_CountsConflictsAsSkipped(t *testing.T) {
	ds, mock := newTestDatasource(t)

	signed := decimal.NewFromInt(1000)
	txns := []*model.BankTransaction{
		{TransactionID: "btxn_1", BankAccountID: 7, SignedAmount: signed, DedupeKey: "k1", Source: model.SourceBank},
		{TransactionID: "btxn_2", BankAccountID: 7, SignedAmount: signed, DedupeKey: "k2", Source: model.SourceBank},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO bank_transactions")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	// second row hits ON CONFLICT DO NOTHING
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	// the conflict is folded into skipped_count before the commit
	mock.ExpectExec("UPDATE upload_batches").
		WithArgs("batch_1", 1, 1, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserted, err := ds.InsertBankTransactions(context.Background(), "batch_1", txns, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBankTransactions_FinalizeFailureRollsBackRows(t *testing.T) {
	ds, mock := newTestDatasource(t)

	txns := []*model.BankTransaction{
		{TransactionID: "btxn_1", BankAccountID: 7, SignedAmount: decimal.NewFromInt(1000), DedupeKey: "k1", Source: model.SourceBank},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO bank_transactions")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE upload_batches").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	inserted, err := ds.InsertBankTransactions(context.Background(), "batch_1", txns, 0, 0)
	assert.Error(t, err)
	assert.Equal(t, 0, inserted)
	// the failed count finalization takes the inserted rows down with it
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBankTransactions_UnknownBatchRollsBack(t *testing.T) {
	ds, mock := newTestDatasource(t)

	txns := []*model.BankTransaction{
		{TransactionID: "btxn_1", BankAccountID: 7, SignedAmount: decimal.NewFromInt(1000), DedupeKey: "k1", Source: model.SourceBank},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO bank_transactions")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE upload_batches").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := ds.InsertBankTransactions(context.Background(), "batch_gone", txns, 0, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBankTransaction_NotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT (.+) FROM bank_transactions").
		WithArgs("missing").
		WillReturnRows(bankTxnRows())

	txn, err := ds.GetBankTransaction(context.Background(), "missing")
	assert.Error(t, err)
	assert.Nil(t, txn)
	assert.Contains(t, err.Error(), "not found")
}
