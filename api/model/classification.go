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
	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/model"
)

// ClassificationRow is one requested slice of a bank transaction. Dates are
// accepted as YYYY-MM-DD strings and parsed during conversion.
type ClassificationRow struct {
	TransactionTypeID int64            `json:"transaction_type_id"`
	CostCentreID      int64            `json:"cost_centre_id"`
	EntityID          int64            `json:"entity_id"`
	AssetID           *int64           `json:"asset_id,omitempty"`
	ContractID        *int64           `json:"contract_id,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	ValueDate         string           `json:"value_date,omitempty"`
	Remarks           string           `json:"remarks,omitempty"`
	Margin            *decimal.Decimal `json:"margin,omitempty"`
}

type ClassifyTransaction struct {
	ClassificationRow
}

type SplitTransaction struct {
	Rows []ClassificationRow `json:"rows"`
}

type ResplitClassification struct {
	Rows []ClassificationRow `json:"rows"`
}

type ReclassifyClassification struct {
	ClassificationRow
}

// ToSplitRow converts the request row into the core split row.
func (r ClassificationRow) ToSplitRow() (model.SplitRow, error) {
	row := model.SplitRow{
		TransactionType: r.TransactionTypeID,
		CostCentreID:    r.CostCentreID,
		EntityID:        r.EntityID,
		AssetID:         r.AssetID,
		ContractID:      r.ContractID,
		Amount:          r.Amount,
		Remarks:         r.Remarks,
		Margin:          r.Margin,
	}
	valueDate, err := parseOptionalDate(r.ValueDate)
	if err != nil {
		return model.SplitRow{}, err
	}
	row.ValueDate = valueDate
	return row, nil
}

// ToSplitRows converts a batch of request rows, failing on the first bad one.
func ToSplitRows(rows []ClassificationRow) ([]model.SplitRow, error) {
	out := make([]model.SplitRow, 0, len(rows))
	for _, r := range rows {
		row, err := r.ToSplitRow()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
