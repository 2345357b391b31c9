package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/model"
)

const bankTxnColumns = `transaction_id, bank_account_id, upload_batch_id, transaction_date, narration, credit_amount, debit_amount, balance_amount, utr_number, signed_amount, dedupe_key, source, created_at`

// GetLastBankTransaction returns the most recent stored row for an account,
// used to check whether a new file opens where the last one ended. Returns
// nil without error when the account has no rows yet.
func (d Datasource) GetLastBankTransaction(ctx context.Context, bankAccountID int64) (*model.BankTransaction, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+bankTxnColumns+`
		FROM bank_transactions
		WHERE bank_account_id = $1
		ORDER BY transaction_date DESC, id DESC
		LIMIT 1
	`, bankAccountID)

	txn, err := scanBankTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve last bank transaction", err)
	}
	return txn, nil
}

// ExistingDedupeKeys returns the subset of keys already stored for the
// account, so file rows can be skipped before insert.
func (d Datasource) ExistingDedupeKeys(ctx context.Context, bankAccountID int64, keys []string) (map[string]struct{}, error) {
	ctx, span := otel.Tracer("bank.upload").Start(ctx, "Checking dedupe keys")
	defer span.End()

	existing := make(map[string]struct{})
	if len(keys) == 0 {
		return existing, nil
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT dedupe_key FROM bank_transactions
		WHERE bank_account_id = $1 AND dedupe_key = ANY($2)
	`, bankAccountID, pq.Array(keys))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check dedupe keys", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan dedupe key", err)
		}
		existing[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over dedupe keys", err)
	}
	return existing, nil
}

// InsertBankTransactions stores rows and finalizes the owning batch's counts
// in a single transaction, so a reader can never observe committed rows
// against a batch that still carries stale counts. Rows whose
// (bank_account_id, dedupe_key) pair already exists are silently skipped,
// making re-uploads idempotent even under concurrent uploads of the same
// file; conflicts caught by the database are folded into the batch's skipped
// count before commit.
func (d Datasource) InsertBankTransactions(ctx context.Context, batchID string, txns []*model.BankTransaction, skippedInFile, errorsCount int) (int, error) {
	ctx, span := otel.Tracer("bank.upload").Start(ctx, "Inserting bank transactions")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bank_transactions (transaction_id, bank_account_id, upload_batch_id, transaction_date, narration, credit_amount, debit_amount, balance_amount, utr_number, signed_amount, dedupe_key, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (bank_account_id, dedupe_key) DO NOTHING
	`)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to prepare insert", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, txn := range txns {
		res, err := stmt.ExecContext(ctx,
			txn.TransactionID, txn.BankAccountID, txn.UploadBatchID, txn.TransactionDate,
			txn.Narration, txn.CreditAmount, txn.DebitAmount, txn.BalanceAmount,
			txn.UTRNumber, txn.SignedAmount, txn.DedupeKey, txn.Source,
		)
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert bank transaction", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
		}
		inserted += int(n)
	}

	skipped := skippedInFile + (len(txns) - inserted)
	res, err := tx.ExecContext(ctx, `
		UPDATE upload_batches
		SET uploaded_count = $2, skipped_count = $3, errors_count = $4
		WHERE batch_id = $1
	`, batchID, inserted, skipped, errorsCount)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finalize upload batch counts", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if affected == 0 {
		return 0, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Upload batch with ID '%s' not found", batchID), nil)
	}

	if err := tx.Commit(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit bank transactions", err)
	}
	return inserted, nil
}

// GetBatchTransactions lists the stored rows of one upload batch in statement order.
func (d Datasource) GetBatchTransactions(ctx context.Context, batchID string, limit, offset int) ([]model.BankTransaction, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+bankTxnColumns+`
		FROM bank_transactions
		WHERE upload_batch_id = $1
		ORDER BY transaction_date, id
		LIMIT $2 OFFSET $3
	`, batchID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve batch transactions", err)
	}
	defer rows.Close()
	return collectBankTransactions(rows)
}

// BankTransactionsForLedger returns raw statement rows for the reconciler's
// fallback source, scoped by company through the owning bank account.
func (d Datasource) BankTransactionsForLedger(ctx context.Context, filter model.LedgerFilter) ([]model.BankTransaction, error) {
	query := `
		SELECT t.transaction_id, t.bank_account_id, t.upload_batch_id, t.transaction_date, t.narration, t.credit_amount, t.debit_amount, t.balance_amount, t.utr_number, t.signed_amount, t.dedupe_key, t.source, t.created_at
		FROM bank_transactions t
		JOIN bank_accounts a ON a.id = t.bank_account_id
		WHERE 1=1`
	var args []interface{}
	idx := 1
	if filter.From != nil {
		query += fmt.Sprintf(" AND t.transaction_date >= $%d", idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND t.transaction_date <= $%d", idx)
		args = append(args, *filter.To)
		idx++
	}
	if len(filter.CompanyIDs) > 0 {
		query += fmt.Sprintf(" AND a.company_id = ANY($%d)", idx)
		args = append(args, pq.Array(filter.CompanyIDs))
		idx++
	}
	query += " ORDER BY t.transaction_date, t.id"

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve ledger bank transactions", err)
	}
	defer rows.Close()
	return collectBankTransactions(rows)
}

func (d Datasource) GetBankTransaction(ctx context.Context, id string) (*model.BankTransaction, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+bankTxnColumns+`
		FROM bank_transactions
		WHERE transaction_id = $1
	`, id)

	txn, err := scanBankTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Bank transaction with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve bank transaction", err)
	}
	return txn, nil
}

func (d Datasource) GetBankAccount(ctx context.Context, id int64) (*model.BankAccount, error) {
	account := &model.BankAccount{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, company_id, name, account_number, bank_name, created_at
		FROM bank_accounts
		WHERE id = $1
	`, id).Scan(&account.ID, &account.CompanyID, &account.Name, &account.AccountNumber, &account.BankName, &account.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Bank account with ID '%d' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve bank account", err)
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBankTransaction(row rowScanner) (*model.BankTransaction, error) {
	txn := &model.BankTransaction{}
	var credit, debit decimal.NullDecimal
	err := row.Scan(
		&txn.TransactionID, &txn.BankAccountID, &txn.UploadBatchID, &txn.TransactionDate,
		&txn.Narration, &credit, &debit, &txn.BalanceAmount,
		&txn.UTRNumber, &txn.SignedAmount, &txn.DedupeKey, &txn.Source, &txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if credit.Valid {
		txn.CreditAmount = &credit.Decimal
	}
	if debit.Valid {
		txn.DebitAmount = &debit.Decimal
	}
	return txn, nil
}

func collectBankTransactions(rows *sql.Rows) ([]model.BankTransaction, error) {
	var txns []model.BankTransaction
	for rows.Next() {
		txn, err := scanBankTransaction(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan bank transaction", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over bank transactions", err)
	}
	return txns, nil
}
