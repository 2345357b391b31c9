package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/model"
)

// CreateUploadBatch persists the audit record for an upload attempt. Rejected
// uploads are recorded too, with a non-zero errors count and no rows.
func (d Datasource) CreateUploadBatch(ctx context.Context, batch *model.UploadBatch) error {
	if batch.BatchID == "" {
		batch.BatchID = GenerateUUIDWithSuffix("batch")
	}
	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO upload_batches (batch_id, bank_account_id, file_name, uploaded_by, uploaded_count, skipped_count, errors_count, screened, balance_continuity_in_file, previous_ending_balance_match)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, batch.BatchID, batch.BankAccountID, batch.FileName, batch.UploadedBy,
		batch.UploadedCount, batch.SkippedCount, batch.ErrorsCount,
		batch.Screened, batch.BalanceContinuityInFile, batch.PreviousEndingBalanceMatch,
	).Scan(&batch.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create upload batch", err)
	}
	return nil
}

func (d Datasource) GetUploadBatch(ctx context.Context, batchID string) (*model.UploadBatch, error) {
	batch := &model.UploadBatch{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT batch_id, bank_account_id, file_name, uploaded_by, uploaded_count, skipped_count, errors_count, screened, balance_continuity_in_file, previous_ending_balance_match, created_at
		FROM upload_batches
		WHERE batch_id = $1
	`, batchID).Scan(
		&batch.BatchID, &batch.BankAccountID, &batch.FileName, &batch.UploadedBy,
		&batch.UploadedCount, &batch.SkippedCount, &batch.ErrorsCount,
		&batch.Screened, &batch.BalanceContinuityInFile, &batch.PreviousEndingBalanceMatch, &batch.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Upload batch with ID '%s' not found", batchID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve upload batch", err)
	}
	return batch, nil
}

func (d Datasource) GetRecentUploadBatches(ctx context.Context, bankAccountID int64, limit int) ([]model.UploadBatch, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT batch_id, bank_account_id, file_name, uploaded_by, uploaded_count, skipped_count, errors_count, screened, balance_continuity_in_file, previous_ending_balance_match, created_at
		FROM upload_batches
		WHERE bank_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, bankAccountID, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve upload batches", err)
	}
	defer rows.Close()

	var batches []model.UploadBatch
	for rows.Next() {
		batch := model.UploadBatch{}
		err := rows.Scan(
			&batch.BatchID, &batch.BankAccountID, &batch.FileName, &batch.UploadedBy,
			&batch.UploadedCount, &batch.SkippedCount, &batch.ErrorsCount,
			&batch.Screened, &batch.BalanceContinuityInFile, &batch.PreviousEndingBalanceMatch, &batch.CreatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan upload batch", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over upload batches", err)
	}
	return batches, nil
}
