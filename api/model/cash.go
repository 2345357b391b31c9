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

// CreateCashEntry is the request body for recording a cash movement.
// CompanyID may be omitted by actors that belong to exactly one company.
type CreateCashEntry struct {
	CompanyID         int64            `json:"company_id,omitempty"`
	TransactionTypeID int64            `json:"transaction_type_id"`
	CostCentreID      int64            `json:"cost_centre_id"`
	EntityID          int64            `json:"entity_id"`
	AssetID           *int64           `json:"asset_id,omitempty"`
	ContractID        *int64           `json:"contract_id,omitempty"`
	SpentByID         *int64           `json:"spent_by_id,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	Chargeable        bool             `json:"chargeable"`
	Margin            *decimal.Decimal `json:"margin,omitempty"`
	EntryDate         string           `json:"entry_date,omitempty"`
	Remarks           string           `json:"remarks,omitempty"`
}

// ToCashEntry converts the request into the core cash entry.
func (r CreateCashEntry) ToCashEntry() (*model.CashEntry, error) {
	entry := &model.CashEntry{
		CompanyID:       r.CompanyID,
		TransactionType: r.TransactionTypeID,
		CostCentreID:    r.CostCentreID,
		EntityID:        r.EntityID,
		AssetID:         r.AssetID,
		ContractID:      r.ContractID,
		SpentByID:       r.SpentByID,
		Amount:          r.Amount,
		Chargeable:      r.Chargeable,
		Margin:          r.Margin,
		Remarks:         r.Remarks,
	}
	entryDate, err := parseOptionalDate(r.EntryDate)
	if err != nil {
		return nil, err
	}
	if entryDate != nil {
		entry.EntryDate = *entryDate
	}
	return entry, nil
}
