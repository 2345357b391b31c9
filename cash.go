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
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/internal/money"
	"github.com/nivasa/nivasa/model"
)

// RecordCashEntry writes one manual cash ledger entry. The running balance is
// chained off the company's latest active entry at write time and is never
// recomputed afterwards, so deactivating older entries leaves later balances
// untouched.
func (n *Nivasa) RecordCashEntry(ctx context.Context, actor model.Actor, entry *model.CashEntry) (*model.CashEntry, error) {
	companyID, err := resolveCashCompany(actor, entry.CompanyID)
	if err != nil {
		return nil, err
	}
	entry.CompanyID = companyID

	entry.Amount = money.Quantize2(entry.Amount)
	if !entry.Amount.IsPositive() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Amount must be greater than 0", nil)
	}
	if entry.Margin != nil {
		m := money.Quantize2(*entry.Margin)
		if m.IsNegative() {
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Margin cannot be negative", nil)
		}
		entry.Margin = &m
	}
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	entry.CreatedBy = actor.UserID

	if err := n.datasource.CreateCashEntry(ctx, entry); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"cash_entry_id": entry.CashEntryID,
		"company_id":    entry.CompanyID,
		"balance":       entry.BalanceAmount.StringFixed(2),
	}).Info("cash entry recorded")
	n.invalidateLedgerCache(ctx)
	return entry, nil
}

// ListCashEntries returns the actor's visible active entries, oldest first.
func (n *Nivasa) ListCashEntries(ctx context.Context, actor model.Actor, filter model.LedgerFilter) ([]model.CashEntry, error) {
	if !actor.Unscoped() {
		if len(actor.CompanyIDs) == 0 {
			return nil, nil
		}
		filter.CompanyIDs = actor.CompanyIDs
	}
	return n.datasource.CashEntries(ctx, filter)
}

// RemoveCashEntry soft-deletes an entry. Balances of later entries are left
// as written.
func (n *Nivasa) RemoveCashEntry(ctx context.Context, actor model.Actor, cashEntryID string) error {
	entry, err := n.datasource.GetCashEntry(ctx, cashEntryID)
	if err != nil {
		return err
	}
	if !actor.Unscoped() && !containsID(actor.CompanyIDs, entry.CompanyID) {
		return apierror.NewAPIError(apierror.ErrForbidden, "You cannot remove entries for this company", nil)
	}
	if err := n.datasource.DeactivateCashEntry(ctx, cashEntryID); err != nil {
		return err
	}
	n.invalidateLedgerCache(ctx)
	return nil
}

// CashBalance returns the balance of the latest active entry visible to the
// actor, optionally narrowed to one company.
func (n *Nivasa) CashBalance(ctx context.Context, actor model.Actor, companyID *int64) (decimal.Decimal, error) {
	var scope []int64
	if actor.Unscoped() {
		if companyID != nil {
			scope = []int64{*companyID}
		}
	} else {
		if len(actor.CompanyIDs) == 0 {
			return decimal.Zero, nil
		}
		if companyID != nil {
			if !containsID(actor.CompanyIDs, *companyID) {
				return decimal.Zero, apierror.NewAPIError(apierror.ErrForbidden, "You cannot view balances for this company", nil)
			}
			scope = []int64{*companyID}
		} else {
			scope = actor.CompanyIDs
		}
	}
	return n.datasource.CurrentCashBalance(ctx, scope)
}

// resolveCashCompany applies the company selection rules for cash writes: an
// unscoped actor must name a company, a scoped actor must name one of their
// own, and a scoped actor with a single company gets it filled in.
func resolveCashCompany(actor model.Actor, provided int64) (int64, error) {
	if actor.Unscoped() {
		if provided == 0 {
			return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "Super user must specify a company explicitly", nil)
		}
		return provided, nil
	}
	if len(actor.CompanyIDs) == 0 {
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "User is not linked to any company", nil)
	}
	if provided != 0 {
		if !containsID(actor.CompanyIDs, provided) {
			return 0, apierror.NewAPIError(apierror.ErrForbidden, "You cannot create entries for this company", nil)
		}
		return provided, nil
	}
	if len(actor.CompanyIDs) == 1 {
		return actor.CompanyIDs[0], nil
	}
	return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "Please specify a company (you belong to multiple companies)", nil)
}
