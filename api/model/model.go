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
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, errors.New("please format dates as 'YYYY-MM-DD' (e.g., 2025-04-22)")
	}
	t = t.UTC()
	return &t, nil
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount")
	}
	if amount.Sign() <= 0 {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

func nonNegativeMargin(value interface{}) error {
	margin, ok := value.(*decimal.Decimal)
	if !ok || margin == nil {
		return nil
	}
	if margin.Sign() < 0 {
		return errors.New("margin cannot be negative")
	}
	return nil
}

func (r ClassificationRow) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TransactionTypeID, validation.Required),
		validation.Field(&r.CostCentreID, validation.Required),
		validation.Field(&r.EntityID, validation.Required),
		validation.Field(&r.Amount, validation.By(positiveAmount)),
		validation.Field(&r.Margin, validation.By(nonNegativeMargin)),
		validation.Field(&r.ValueDate, validation.When(r.ValueDate != "", validation.Date(dateLayout))),
	)
}

func (t *ClassifyTransaction) ValidateClassifyTransaction() error {
	return t.ClassificationRow.Validate()
}

func (t *SplitTransaction) ValidateSplitTransaction() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Rows, validation.Required, validation.Length(2, 0)),
	)
}

func (t *ResplitClassification) ValidateResplitClassification() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Rows, validation.Required, validation.Length(2, 0)),
	)
}

// ValidateReclassifyClassification skips the amount rule: a reclassified row
// inherits its amount from the row it supersedes.
func (t *ReclassifyClassification) ValidateReclassifyClassification() error {
	r := t.ClassificationRow
	return validation.ValidateStruct(&r,
		validation.Field(&r.TransactionTypeID, validation.Required),
		validation.Field(&r.CostCentreID, validation.Required),
		validation.Field(&r.EntityID, validation.Required),
		validation.Field(&r.Margin, validation.By(nonNegativeMargin)),
		validation.Field(&r.ValueDate, validation.When(r.ValueDate != "", validation.Date(dateLayout))),
	)
}

func (r *CreateCashEntry) ValidateCreateCashEntry() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TransactionTypeID, validation.Required),
		validation.Field(&r.CostCentreID, validation.Required),
		validation.Field(&r.EntityID, validation.Required),
		validation.Field(&r.Amount, validation.By(positiveAmount)),
		validation.Field(&r.Margin, validation.By(nonNegativeMargin)),
		validation.Field(&r.EntryDate, validation.When(r.EntryDate != "", validation.Date(dateLayout))),
	)
}

func (q *PivotQuery) ValidatePivotQuery() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Dims, validation.Each(validation.In(
			"date", "entity", "cost_centre", "contract", "asset", "project", "txn_type",
		))),
		validation.Field(&q.DateGranularity, validation.When(q.DateGranularity != "",
			validation.In("day", "month", "quarter", "year"),
		)),
		validation.Field(&q.From, validation.When(q.From != "", validation.Date(dateLayout))),
		validation.Field(&q.To, validation.When(q.To != "", validation.Date(dateLayout))),
	)
}
