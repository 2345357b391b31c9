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
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const SourceClassification = "CLASSIFICATION"

// LedgerRow is the normalized shape every reconciled source maps into. Credit
// and debit are both non-negative; exactly one is non-zero for a directed
// movement. Dimension names may be empty when the source schema lacks them.
type LedgerRow struct {
	ValueDate  time.Time       `json:"value_date"`
	TxnType    string          `json:"txn_type,omitempty"`
	Credit     decimal.Decimal `json:"credit"`
	Debit      decimal.Decimal `json:"debit"`
	Remarks    string          `json:"remarks,omitempty"`
	Source     string          `json:"source"`
	Entity     string          `json:"entity,omitempty"`
	EntityType string          `json:"entity_type,omitempty"`
	CostCentre string          `json:"cost_centre,omitempty"`
	Contract   string          `json:"contract,omitempty"`
	Asset      string          `json:"asset,omitempty"`
	Project    string          `json:"project,omitempty"`

	EntityID     *int64 `json:"entity_id,omitempty"`
	CostCentreID *int64 `json:"cost_centre_id,omitempty"`
	ContractID   *int64 `json:"contract_id,omitempty"`
	AssetID      *int64 `json:"asset_id,omitempty"`
	ProjectID    *int64 `json:"project_id,omitempty"`

	// Balance is filled by the running-balance pass, not by mapping.
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

// Net is the signed movement of the row, credit minus debit.
func (r LedgerRow) Net() decimal.Decimal {
	return r.Credit.Sub(r.Debit)
}

// SortLedgerRows orders rows by value date, then transaction type label, then
// remarks, so interleaved sources produce a stable statement. The sort is
// stable to keep equal rows in source-arrival order.
func SortLedgerRows(rows []LedgerRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.ValueDate.Equal(b.ValueDate) {
			return a.ValueDate.Before(b.ValueDate)
		}
		if a.TxnType != b.TxnType {
			return a.TxnType < b.TxnType
		}
		return a.Remarks < b.Remarks
	})
}
