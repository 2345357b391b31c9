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

package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/internal/money"
)

const SourceCash = "CASH"

// CashEntry is a manually recorded cash movement, independent of any bank
// statement. Entries carry a running balance computed at write time from the
// previous active entry of the same company, and are soft-deleted by flipping
// is_active. Balances are never retro-recomputed on update or deactivation.
type CashEntry struct {
	ID              int64            `json:"-"`
	CashEntryID     string           `json:"cash_entry_id"`
	CompanyID       int64            `json:"company_id"`
	TransactionType int64            `json:"transaction_type_id"`
	CostCentreID    int64            `json:"cost_centre_id"`
	EntityID        int64            `json:"entity_id"`
	AssetID         *int64           `json:"asset_id,omitempty"`
	ContractID      *int64           `json:"contract_id,omitempty"`
	SpentByID       *int64           `json:"spent_by_id,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	Chargeable      bool             `json:"chargeable"`
	Margin          *decimal.Decimal `json:"margin,omitempty"`
	BalanceAmount   decimal.Decimal  `json:"balance_amount"`
	EntryDate       time.Time        `json:"entry_date"`
	Remarks         string           `json:"remarks,omitempty"`
	IsActive        bool             `json:"is_active"`
	CreatedBy       string           `json:"created_by,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`

	TransactionTypeName string `json:"transaction_type,omitempty"`
	TransactionTypeCode string `json:"-"`
	CostCentreName      string `json:"cost_centre,omitempty"`
	CostCentreSlug      string `json:"-"`
	EntityName          string `json:"entity,omitempty"`
	EntityType          string `json:"entity_type,omitempty"`
	LinkedProjectID     *int64 `json:"-"`
	LinkedProjectName   string `json:"-"`
	AssetName           string `json:"asset,omitempty"`
	ContractName        string `json:"contract,omitempty"`
	SpentByName         string `json:"spent_by,omitempty"`
}

// EffectiveAmount is the amount that moves the cash balance. When an entry is
// chargeable with a margin, only the net of the margin hits the balance.
func (e CashEntry) EffectiveAmount() decimal.Decimal {
	amt := money.Quantize2(e.Amount)
	if e.Chargeable && e.Margin != nil && !e.Margin.IsZero() {
		return money.Quantize2(amt.Sub(*e.Margin))
	}
	return amt
}

// NextBalance computes the running balance this entry should be stored with.
// Cash entries record outflows, so the effective amount is subtracted from
// the previous active entry's balance.
func (e CashEntry) NextBalance(previous decimal.Decimal) decimal.Decimal {
	return money.Quantize2(previous.Sub(e.EffectiveAmount()))
}
