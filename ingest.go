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
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/nivasa/nivasa/database"
	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/model"
)

// UploadStatement ingests one CSV bank statement for an account. The whole
// file is screened before anything is written: rows must chain balances
// (in either direction), and the implied opening must match the last stored
// balance of the account. A failed screen persists an audit batch with the
// failure reasons and stores no rows. Duplicate rows, judged by content
// hash against the database and within the file, are skipped and echoed back.
func (n *Nivasa) UploadStatement(ctx context.Context, actor model.Actor, bankAccountID int64, fileName string, file io.Reader) (*model.UploadSummary, error) {
	ctx, span := otel.Tracer("bank.upload").Start(ctx, "Uploading bank statement")
	defer span.End()

	if !strings.HasSuffix(strings.ToLower(fileName), ".csv") {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Only CSV files are supported", nil)
	}

	account, err := n.datasource.GetBankAccount(ctx, bankAccountID)
	if err != nil {
		return nil, err
	}
	if !actor.Unscoped() && !containsID(actor.CompanyIDs, account.CompanyID) {
		return nil, apierror.NewAPIError(apierror.ErrForbidden, "You cannot upload statements for this bank account", nil)
	}

	batch := &model.UploadBatch{
		BankAccountID: bankAccountID,
		FileName:      fileName,
		UploadedBy:    actor.UserID,
	}

	statement, err := ParseStatement(file)
	if err != nil {
		batch.ErrorsCount = 1
		if createErr := n.datasource.CreateUploadBatch(ctx, batch); createErr != nil {
			return nil, createErr
		}
		if missing, ok := err.(ErrMissingColumns); ok {
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, missing.Error(), map[string]interface{}{
				"detected_headers": missing.DetectedHeaders,
			})
		}
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid file: "+err.Error(), nil)
	}

	continuityOK, opening, usedRows := ContinuityAndOpening(statement.Rows)

	prevMatch := true
	if len(usedRows) > 0 {
		lastTxn, err := n.datasource.GetLastBankTransaction(ctx, bankAccountID)
		if err != nil {
			return nil, err
		}
		if lastTxn != nil {
			var openingBal string
			if opening != nil {
				openingBal = opening.StringFixed(2)
			} else {
				openingBal = "0.00"
			}
			prevMatch = lastTxn.BalanceAmount.StringFixed(2) == openingBal
		}
	}

	batch.Screened = true
	batch.BalanceContinuityInFile = continuityOK
	batch.PreviousEndingBalanceMatch = prevMatch

	// Hard stop: nothing is stored when the chain does not hold.
	if !continuityOK || !prevMatch {
		batch.ErrorsCount = statement.Errors + 1
		if err := n.datasource.CreateUploadBatch(ctx, batch); err != nil {
			return nil, err
		}

		var reasons []string
		if !continuityOK {
			reasons = append(reasons, "Balance continuity failed within the file.")
		}
		if !prevMatch {
			reasons = append(reasons, "Previous ending balance does not match this file's opening balance.")
		}
		logrus.WithFields(logrus.Fields{
			"batch_id":        batch.BatchID,
			"bank_account_id": bankAccountID,
			"reasons":         reasons,
		}).Warn("statement upload rejected")

		summary := &model.UploadSummary{
			BatchID:     batch.BatchID,
			ErrorsCount: batch.ErrorsCount,
			Continuity:  model.ContinuityInvalid,
			Errors:      reasons,
		}
		if opening != nil {
			summary.OpeningBalanceInFile = opening.StringFixed(2)
		}
		return summary, nil
	}

	// Dedup pre-filter: each row carries two candidate keys, one with its
	// best reference and one with an empty reference, so a row matches a
	// stored twin whether or not the earlier export included the reference.
	type candidate struct {
		row     StatementRow
		bestUTR string
		keys    [2]string
	}
	candidates := make([]candidate, 0, len(usedRows))
	var allKeys []string
	for _, r := range usedRows {
		bestUTR := strings.TrimSpace(r.UTRNumber)
		if bestUTR == "" {
			bestUTR = ExtractRefFromNarration(r.Narration)
		}
		kMain := model.DedupeKey(r.TransactionDate, r.Narration, r.SignedAmount, bestUTR)
		kEmpty := model.DedupeKey(r.TransactionDate, r.Narration, r.SignedAmount, "")
		candidates = append(candidates, candidate{row: r, bestUTR: bestUTR, keys: [2]string{kMain, kEmpty}})
		allKeys = append(allKeys, kMain, kEmpty)
	}

	existing, err := n.datasource.ExistingDedupeKeys(ctx, bankAccountID, allKeys)
	if err != nil {
		return nil, err
	}

	var toInsert []*model.BankTransaction
	var skippedRows []model.SkippedRow
	seenInFile := make(map[string]struct{})

	for _, c := range candidates {
		dup := false
		for _, k := range c.keys {
			if _, ok := existing[k]; ok {
				dup = true
				break
			}
			if _, ok := seenInFile[k]; ok {
				dup = true
				break
			}
		}
		if dup {
			skippedRows = append(skippedRows, skippedRowFrom(c.row, c.bestUTR))
			continue
		}
		for _, k := range c.keys {
			seenInFile[k] = struct{}{}
		}

		txn := &model.BankTransaction{
			TransactionID:   database.GenerateUUIDWithSuffix("btxn"),
			BankAccountID:   bankAccountID,
			TransactionDate: c.row.TransactionDate,
			Narration:       c.row.Narration,
			CreditAmount:    c.row.CreditAmount,
			DebitAmount:     c.row.DebitAmount,
			BalanceAmount:   c.row.BalanceAmount,
			UTRNumber:       c.bestUTR,
			Source:          model.SourceBank,
		}
		txn.SignedAmount = txn.ComputeSignedAmount()
		txn.DedupeKey = txn.BuildDedupeKey()
		toInsert = append(toInsert, txn)
	}

	// Batch row first so inserted transactions can reference it.
	if err := n.datasource.CreateUploadBatch(ctx, batch); err != nil {
		return nil, err
	}
	for _, txn := range toInsert {
		txn.UploadBatchID = batch.BatchID
	}

	// Rows and batch counts commit as one unit: the datasource finalizes the
	// counts inside the insert transaction, so a failure here leaves the batch
	// without any rows rather than rows with stale counts.
	inserted, err := n.datasource.InsertBankTransactions(ctx, batch.BatchID, toInsert, len(skippedRows), statement.Errors)
	if err != nil {
		return nil, err
	}
	// conflicts caught by the DB, possible under concurrent uploads
	dbConflictSkipped := len(toInsert) - inserted
	skipped := len(skippedRows) + dbConflictSkipped

	logrus.WithFields(logrus.Fields{
		"batch_id":        batch.BatchID,
		"bank_account_id": bankAccountID,
		"uploaded":        inserted,
		"skipped":         skipped,
		"errors":          statement.Errors,
	}).Info("statement upload completed")

	if inserted > 0 {
		n.invalidateLedgerCache(ctx)
	}

	summary := &model.UploadSummary{
		BatchID:       batch.BatchID,
		UploadedCount: inserted,
		SkippedCount:  skipped,
		SkippedRows:   skippedRows,
		ErrorsCount:   statement.Errors,
		Continuity:    model.ContinuityValid,
	}
	if opening != nil {
		summary.OpeningBalanceInFile = opening.StringFixed(2)
	}
	return summary, nil
}

func skippedRowFrom(r StatementRow, bestUTR string) model.SkippedRow {
	row := model.SkippedRow{
		Row:             r.Line,
		Reason:          "Duplicate",
		TransactionDate: r.TransactionDate.Format("2006-01-02"),
		Narration:       r.Narration,
		BalanceAmount:   r.BalanceAmount.StringFixed(2),
		UTRNumber:       bestUTR,
	}
	if r.CreditAmount != nil {
		row.CreditAmount = r.CreditAmount.StringFixed(2)
	}
	if r.DebitAmount != nil {
		row.DebitAmount = r.DebitAmount.StringFixed(2)
	}
	return row
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
