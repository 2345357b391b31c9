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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/internal/money"
	"github.com/nivasa/nivasa/model"
)

// ClassifyTransaction records a single active classification for a bank
// transaction. Any previously active rows for the transaction are superseded
// by the new row, keeping the full history queryable.
func (n *Nivasa) ClassifyTransaction(ctx context.Context, actor model.Actor, bankTxnID string, row model.SplitRow) (*model.Classification, error) {
	ctx, span := otel.Tracer("classify").Start(ctx, "Classifying bank transaction")
	defer span.End()

	txn, companyID, err := n.scopedBankTransaction(ctx, actor, bankTxnID)
	if err != nil {
		return nil, err
	}

	normalized, _, err := normalizeSplitRows([]model.SplitRow{row}, txn.TransactionDate)
	if err != nil {
		return nil, err
	}

	active, err := n.datasource.ClassificationsForTransaction(ctx, bankTxnID, true)
	if err != nil {
		return nil, err
	}

	cls := buildClassification(txn.TransactionID, companyID, actor.UserID, normalized[0], classificationIDs(active))
	if err := n.datasource.CreateClassifications(ctx, []*model.Classification{cls}); err != nil {
		return nil, err
	}
	n.invalidateLedgerCache(ctx)
	return cls, nil
}

// SplitTransaction replaces the active classifications of a bank transaction
// with a new set of rows whose amounts must sum to the transaction's absolute
// signed amount. All rows are written in one database transaction.
func (n *Nivasa) SplitTransaction(ctx context.Context, actor model.Actor, bankTxnID string, rows []model.SplitRow) ([]*model.Classification, error) {
	ctx, span := otel.Tracer("classify").Start(ctx, "Splitting bank transaction")
	defer span.End()

	txn, companyID, err := n.scopedBankTransaction(ctx, actor, bankTxnID)
	if err != nil {
		return nil, err
	}

	normalized, total, err := normalizeSplitRows(rows, txn.TransactionDate)
	if err != nil {
		return nil, err
	}
	expected := money.Quantize2(txn.SignedAmount.Abs())
	if !total.Equal(expected) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("Split total %s must equal transaction amount %s", money.Format2(total), money.Format2(expected)), nil)
	}

	active, err := n.datasource.ClassificationsForTransaction(ctx, bankTxnID, true)
	if err != nil {
		return nil, err
	}

	replaces := classificationIDs(active)
	created := make([]*model.Classification, 0, len(normalized))
	for _, r := range normalized {
		created = append(created, buildClassification(txn.TransactionID, companyID, actor.UserID, r, replaces))
	}
	if err := n.datasource.CreateClassifications(ctx, created); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"bank_transaction_id": bankTxnID,
		"rows":                len(created),
		"superseded":          len(replaces),
	}).Info("bank transaction split")
	n.invalidateLedgerCache(ctx)
	return created, nil
}

// ResplitClassification splits one active classification into several rows
// whose amounts must sum to its amount. Only the targeted row is superseded;
// its siblings on the same bank transaction stay active.
func (n *Nivasa) ResplitClassification(ctx context.Context, actor model.Actor, classificationID string, rows []model.SplitRow) ([]*model.Classification, error) {
	ctx, span := otel.Tracer("classify").Start(ctx, "Re-splitting classification")
	defer span.End()

	child, err := n.scopedActiveClassification(ctx, actor, classificationID)
	if err != nil {
		return nil, err
	}

	normalized, total, err := normalizeSplitRows(rows, child.ValueDate)
	if err != nil {
		return nil, err
	}
	expected := money.Quantize2(child.Amount)
	if !total.Equal(expected) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("Split total %s must equal selected row's amount %s", money.Format2(total), money.Format2(expected)), nil)
	}

	created := make([]*model.Classification, 0, len(normalized))
	for _, r := range normalized {
		created = append(created, buildClassification(child.BankTxnID, child.CompanyID, actor.UserID, r, []string{child.ClassificationID}))
	}
	if err := n.datasource.CreateClassifications(ctx, created); err != nil {
		return nil, err
	}
	n.invalidateLedgerCache(ctx)
	return created, nil
}

// ReclassifyClassification rewrites the dimensions of one active
// classification without changing its amount. A new row with the same amount
// supersedes the targeted one.
func (n *Nivasa) ReclassifyClassification(ctx context.Context, actor model.Actor, classificationID string, row model.SplitRow) (*model.Classification, error) {
	ctx, span := otel.Tracer("classify").Start(ctx, "Re-classifying")
	defer span.End()

	child, err := n.scopedActiveClassification(ctx, actor, classificationID)
	if err != nil {
		return nil, err
	}

	// The amount is inherited from the superseded row, never from the request.
	row.Amount = child.Amount
	normalized, _, err := normalizeSplitRows([]model.SplitRow{row}, child.ValueDate)
	if err != nil {
		return nil, err
	}

	cls := buildClassification(child.BankTxnID, child.CompanyID, actor.UserID, normalized[0], []string{child.ClassificationID})
	if err := n.datasource.CreateClassifications(ctx, []*model.Classification{cls}); err != nil {
		return nil, err
	}
	n.invalidateLedgerCache(ctx)
	return cls, nil
}

// TransactionClassifications returns the classification rows recorded against
// a bank transaction, either the active frontier or the full history.
func (n *Nivasa) TransactionClassifications(ctx context.Context, actor model.Actor, bankTxnID string, activeOnly bool) ([]model.Classification, error) {
	if _, _, err := n.scopedBankTransaction(ctx, actor, bankTxnID); err != nil {
		return nil, err
	}
	return n.datasource.ClassificationsForTransaction(ctx, bankTxnID, activeOnly)
}

// scopedBankTransaction loads a bank transaction and resolves its owning
// company through the bank account, rejecting actors outside that company.
func (n *Nivasa) scopedBankTransaction(ctx context.Context, actor model.Actor, bankTxnID string) (*model.BankTransaction, int64, error) {
	txn, err := n.datasource.GetBankTransaction(ctx, bankTxnID)
	if err != nil {
		return nil, 0, err
	}
	account, err := n.datasource.GetBankAccount(ctx, txn.BankAccountID)
	if err != nil {
		return nil, 0, err
	}
	if !actor.Unscoped() && !containsID(actor.CompanyIDs, account.CompanyID) {
		return nil, 0, apierror.NewAPIError(apierror.ErrForbidden, "You cannot classify transactions for this bank account", nil)
	}
	return txn, account.CompanyID, nil
}

// scopedActiveClassification loads a classification, verifies the actor can
// see its company, and rejects rows that have already been superseded.
func (n *Nivasa) scopedActiveClassification(ctx context.Context, actor model.Actor, classificationID string) (*model.Classification, error) {
	child, err := n.datasource.GetClassification(ctx, classificationID)
	if err != nil {
		return nil, err
	}
	if !actor.Unscoped() && !containsID(actor.CompanyIDs, child.CompanyID) {
		return nil, apierror.NewAPIError(apierror.ErrForbidden, "You cannot modify classifications for this company", nil)
	}
	active, err := n.datasource.ClassificationsForTransaction(ctx, child.BankTxnID, true)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if active[i].ClassificationID == child.ClassificationID {
			return child, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrConflict, "Classification has already been superseded", nil)
}

// normalizeSplitRows quantizes amounts, enforces positivity, defaults missing
// value dates and folds margins into remarks. Returns the rows and their
// total amount.
func normalizeSplitRows(rows []model.SplitRow, defaultDate time.Time) ([]model.SplitRow, decimal.Decimal, error) {
	if len(rows) == 0 {
		return nil, decimal.Zero, apierror.NewAPIError(apierror.ErrInvalidInput, "At least one split row is required", nil)
	}
	total := decimal.Zero
	out := make([]model.SplitRow, 0, len(rows))
	for _, r := range rows {
		r.Amount = money.Quantize2(r.Amount)
		if !r.Amount.IsPositive() {
			return nil, decimal.Zero, apierror.NewAPIError(apierror.ErrInvalidInput, "Each amount must be greater than 0", nil)
		}
		if r.ValueDate == nil || r.ValueDate.IsZero() {
			d := defaultDate
			r.ValueDate = &d
		}
		if r.Margin != nil {
			m := money.Quantize2(*r.Margin)
			if m.IsNegative() {
				return nil, decimal.Zero, apierror.NewAPIError(apierror.ErrInvalidInput, "Margin cannot be negative", nil)
			}
			r.Remarks = model.AppendMarginNote(r.Remarks, m)
			r.Margin = nil
		}
		total = total.Add(r.Amount)
		out = append(out, r)
	}
	return out, money.Quantize2(total), nil
}

func buildClassification(bankTxnID string, companyID int64, createdBy string, row model.SplitRow, replaces []string) *model.Classification {
	return &model.Classification{
		BankTxnID:       bankTxnID,
		CompanyID:       companyID,
		TransactionType: row.TransactionType,
		CostCentreID:    row.CostCentreID,
		EntityID:        row.EntityID,
		AssetID:         row.AssetID,
		ContractID:      row.ContractID,
		Amount:          row.Amount,
		ValueDate:       *row.ValueDate,
		Remarks:         row.Remarks,
		Replaces:        replaces,
		CreatedBy:       createdBy,
	}
}

func classificationIDs(rows []model.Classification) []string {
	ids := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ClassificationID)
	}
	return ids
}
