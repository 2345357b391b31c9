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

	"github.com/nivasa/nivasa/internal/money"
	"github.com/nivasa/nivasa/model"
)

// BatchDetails is one upload batch's rows plus its statement totals.
type BatchDetails struct {
	Transactions []model.BankTransaction `json:"transactions"`
	TotalCredit  decimal.Decimal         `json:"total_credit"`
	TotalDebit   decimal.Decimal         `json:"total_debit"`
	FinalBalance decimal.Decimal         `json:"final_balance"`
}

// RecentUpload is the operator-facing view of one past batch.
type RecentUpload struct {
	BatchID              string `json:"batch_id"`
	UploadDate           string `json:"upload_date"`
	FileName             string `json:"file_name"`
	UploadedBy           string `json:"uploaded_by"`
	TransactionsUploaded int    `json:"transactions_uploaded"`
	Status               string `json:"status"`
}

const recentUploadsLimit = 10

// GetBatchDetails returns the rows of one batch with credit/debit totals and
// the closing balance of the latest row.
func (n *Nivasa) GetBatchDetails(ctx context.Context, batchID string, limit, offset int) (*BatchDetails, error) {
	if limit <= 0 {
		limit = 1000
	}
	txns, err := n.datasource.GetBatchTransactions(ctx, batchID, limit, offset)
	if err != nil {
		return nil, err
	}

	details := &BatchDetails{Transactions: txns}
	for _, t := range txns {
		if t.CreditAmount != nil {
			details.TotalCredit = details.TotalCredit.Add(*t.CreditAmount)
		}
		if t.DebitAmount != nil {
			details.TotalDebit = details.TotalDebit.Add(*t.DebitAmount)
		}
	}
	details.TotalCredit = money.Quantize2(details.TotalCredit)
	details.TotalDebit = money.Quantize2(details.TotalDebit)
	if len(txns) > 0 {
		details.FinalBalance = txns[len(txns)-1].BalanceAmount
	}
	return details, nil
}

// RecentUploads lists the latest batches for a bank account with a pass /
// needs-review verdict per batch.
func (n *Nivasa) RecentUploads(ctx context.Context, bankAccountID int64) ([]RecentUpload, error) {
	batches, err := n.datasource.GetRecentUploadBatches(ctx, bankAccountID, recentUploadsLimit)
	if err != nil {
		return nil, err
	}

	uploads := make([]RecentUpload, 0, len(batches))
	for _, b := range batches {
		status := "Needs Review"
		if b.Passed() {
			status = "Passed"
		}
		uploadedBy := b.UploadedBy
		if uploadedBy == "" {
			uploadedBy = "-"
		}
		uploads = append(uploads, RecentUpload{
			BatchID:              b.BatchID,
			UploadDate:           b.CreatedAt.Format("2006-01-02 15:04"),
			FileName:             b.FileName,
			UploadedBy:           uploadedBy,
			TransactionsUploaded: b.UploadedCount,
			Status:               status,
		})
	}
	return uploads, nil
}
