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
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/internal/money"
)

// Classification attributes one slice of a bank transaction's amount to a
// dimensional combination (transaction type, cost centre, entity, optionally
// asset and contract). The table is append-only: a row is superseded by
// inserting replacement rows that list it, never by mutating
// it, so the full reclassification history stays queryable. Replacement rows
// carry the IDs they supersede in Replaces.
type Classification struct {
	ID               int64           `json:"-"`
	ClassificationID string          `json:"classification_id"`
	BankTxnID        string          `json:"bank_transaction_id"`
	CompanyID        int64           `json:"company_id"`
	TransactionType  int64           `json:"transaction_type_id"`
	CostCentreID     int64           `json:"cost_centre_id"`
	EntityID         int64           `json:"entity_id"`
	AssetID          *int64          `json:"asset_id,omitempty"`
	ContractID       *int64          `json:"contract_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	ValueDate        time.Time       `json:"value_date"`
	Remarks          string          `json:"remarks,omitempty"`
	// Replaces lists the classification IDs this row superseded, forming
	// the audit chain. A row is active iff no later row lists it.
	Replaces  []string  `json:"replaces,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Display fields joined in by the datasource for reporting; never
	// written back.
	TransactionTypeName string `json:"transaction_type,omitempty"`
	TransactionTypeCode string `json:"-"`
	CostCentreName      string `json:"cost_centre,omitempty"`
	CostCentreSlug      string `json:"-"`
	CostCentreCode      string `json:"-"`
	EntityName          string `json:"entity,omitempty"`
	EntityType          string `json:"entity_type,omitempty"`
	LinkedProjectID     *int64 `json:"-"`
	LinkedProjectName   string `json:"-"`
	AssetName           string `json:"asset,omitempty"`
	ContractName        string `json:"contract,omitempty"`
}

var marginNoteRe = regexp.MustCompile(`(?i)\bMargin:\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)

// ParsedMargin extracts the "Margin: <amount>" note folded into remarks at
// classification time, if any.
func (c Classification) ParsedMargin() *decimal.Decimal {
	m := marginNoteRe.FindStringSubmatch(c.Remarks)
	if m == nil {
		return nil
	}
	d := money.Quantize2(money.ToMoney(strings.ReplaceAll(m[1], ",", "")))
	return &d
}

// CleanedRemarks returns remarks with any margin note stripped out.
func (c Classification) CleanedRemarks() string {
	out := marginNoteRe.ReplaceAllString(c.Remarks, "")
	out = strings.Trim(out, " |")
	return strings.TrimSpace(out)
}

// AppendMarginNote folds a non-negative margin into a remarks string,
// preserving the original text.
func AppendMarginNote(remarks string, margin decimal.Decimal) string {
	note := "Margin: " + money.Format2(margin)
	if strings.TrimSpace(remarks) == "" {
		return note
	}
	return remarks + " | " + note
}

// SplitRow is one requested slice in a split/re-split operation.
type SplitRow struct {
	TransactionType int64            `json:"transaction_type_id"`
	CostCentreID    int64            `json:"cost_centre_id"`
	EntityID        int64            `json:"entity_id"`
	AssetID         *int64           `json:"asset_id,omitempty"`
	ContractID      *int64           `json:"contract_id,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	ValueDate       *time.Time       `json:"value_date,omitempty"`
	Remarks         string           `json:"remarks,omitempty"`
	Margin          *decimal.Decimal `json:"margin,omitempty"`
}
