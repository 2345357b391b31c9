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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nivasa/nivasa/model"
)

func TestRunningBalance(t *testing.T) {
	rows := []model.LedgerRow{
		{Credit: decimal.NewFromInt(1000)},
		{Debit: decimal.NewFromInt(200)},
		{Credit: decimal.NewFromInt(500)},
	}

	out := RunningBalance(rows, decimal.NewFromInt(100))
	assert.Equal(t, "1100", out[0].Balance.String())
	assert.Equal(t, "900", out[1].Balance.String())
	assert.Equal(t, "1400", out[2].Balance.String())
	// input rows are not mutated
	assert.Nil(t, rows[0].Balance)
}

func TestMonthRange(t *testing.T) {
	start, end, err := MonthRange("2025-02")
	assert.NoError(t, err)
	assert.Equal(t, "2025-02-01", start.Format("2006-01-02"))
	assert.Equal(t, "2025-02-28", end.Format("2006-01-02"))

	// December rolls over the year boundary
	start, end, err = MonthRange("2024-12")
	assert.NoError(t, err)
	assert.Equal(t, "2024-12-01", start.Format("2006-01-02"))
	assert.Equal(t, "2024-12-31", end.Format("2006-01-02"))

	_, _, err = MonthRange("2024-13")
	assert.Error(t, err)
}

func TestFormatPeriod(t *testing.T) {
	d := time.Date(2025, 8, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-08-06", FormatPeriod(d, "day"))
	assert.Equal(t, "2025-08", FormatPeriod(d, "month"))
	assert.Equal(t, "2025-Q3", FormatPeriod(d, "quarter"))
	assert.Equal(t, "2025", FormatPeriod(d, "year"))
	assert.Equal(t, missingDim, FormatPeriod(time.Time{}, "month"))
}

func TestOpeningBalanceUntil_SumsStrictlyBefore(t *testing.T) {
	var seen model.LedgerFilter
	ds := &MockDataSource{
		MockActiveClassifications: func(_ context.Context, f model.LedgerFilter) ([]model.Classification, error) {
			seen = f
			return []model.Classification{
				sampleClassification(1, "1000"),
				sampleClassification(2, "250"),
			}, nil
		},
	}
	svc := newTestService(ds)

	until := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	bal, err := svc.OpeningBalanceUntil(context.Background(), superUser(), until, model.LedgerFilter{})
	assert.NoError(t, err)
	// both rows are credits via the CR type code
	assert.Equal(t, "1250.00", bal.StringFixed(2))
	assert.Nil(t, seen.From)
	assert.Equal(t, "2025-03-09", seen.To.Format("2006-01-02"))
}

func pivotLedgerMock() *MockDataSource {
	mk := func(day int, amount, tt, code, entity, cc string) model.Classification {
		c := sampleClassification(day, amount)
		c.TransactionTypeName = tt
		c.TransactionTypeCode = code
		c.EntityName = entity
		c.CostCentreName = cc
		return c
	}
	return &MockDataSource{
		MockActiveClassifications: func(context.Context, model.LedgerFilter) ([]model.Classification, error) {
			return []model.Classification{
				mk(1, "1000", "Rent In", "CR", "Skyline", "Operations"),
				mk(2, "200", "Maintenance Paid", "DR", "Skyline", "Maintenance"),
				mk(3, "500", "Rent In", "CR", "Harbour View", "Operations"),
			}, nil
		},
	}
}

func TestPivot_GroupsByDimensions(t *testing.T) {
	svc := newTestService(pivotLedgerMock())

	res, err := svc.Pivot(context.Background(), superUser(), PivotRequest{
		Dims:            []string{"entity"},
		From:            timePtr(mar(1)),
		To:              timePtr(mar(31)),
		DateGranularity: "month",
	})
	assert.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	byEntity := map[string]PivotRow{}
	for _, r := range res.Rows {
		byEntity[r.Dims["entity"]] = r
	}
	sky := byEntity["Skyline"]
	assert.Equal(t, "1000", sky.Credit.String())
	assert.Equal(t, "200", sky.Debit.String())
	assert.Equal(t, "800", sky.Margin.String())

	assert.Equal(t, "1500", res.Totals.Credit.String())
	assert.Equal(t, "200", res.Totals.Debit.String())
	// running balance over the filtered set in date order
	assert.Equal(t, "1300", res.Totals.Balance.String())
}

func TestPivot_ValueFilters(t *testing.T) {
	svc := newTestService(pivotLedgerMock())

	res, err := svc.Pivot(context.Background(), superUser(), PivotRequest{
		Dims:   []string{"entity", "cost_centre"},
		Values: map[string][]string{"entity": {"Harbour View"}},
		From:   timePtr(mar(1)),
		To:     timePtr(mar(31)),
	})
	assert.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Equal(t, "Harbour View", res.Rows[0].Dims["entity"])
	assert.Equal(t, "500", res.Totals.Balance.String())
}

func TestPivot_MissingDimensionLabel(t *testing.T) {
	ds := &MockDataSource{
		MockActiveClassifications: func(context.Context, model.LedgerFilter) ([]model.Classification, error) {
			c := sampleClassification(1, "100")
			c.ContractName = ""
			return []model.Classification{c}, nil
		},
	}
	svc := newTestService(ds)

	res, err := svc.Pivot(context.Background(), superUser(), PivotRequest{
		Dims: []string{"contract"},
		From: timePtr(mar(1)),
		To:   timePtr(mar(31)),
	})
	assert.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Equal(t, missingDim, res.Rows[0].Dims["contract"])
}

func timePtr(t time.Time) *time.Time { return &t }
