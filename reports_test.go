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

	"github.com/stretchr/testify/assert"

	"github.com/nivasa/nivasa/model"
)

func TestEntityStatement_OpeningCarriesIntoBalances(t *testing.T) {
	ds := &MockDataSource{
		MockActiveClassifications: func(_ context.Context, f model.LedgerFilter) ([]model.Classification, error) {
			// the opening-balance query has no From bound
			if f.From == nil {
				return []model.Classification{sampleClassification(25, "400")}, nil
			}
			return []model.Classification{
				sampleClassification(1, "1000"),
				sampleClassification(2, "250"),
			}, nil
		},
	}
	svc := newTestService(ds)

	rows, err := svc.EntityStatement(context.Background(), superUser(), 4, "2025-04")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	// 400 opening + 1000, then + 250
	assert.Equal(t, "1400.00", rows[0].Balance.StringFixed(2))
	assert.Equal(t, "1650.00", rows[1].Balance.StringFixed(2))
}

func TestEntityStatement_BadMonth(t *testing.T) {
	svc := newTestService(&MockDataSource{})
	_, err := svc.EntityStatement(context.Background(), superUser(), 4, "April 2025")
	assert.Error(t, err)
}

func TestMIExpensesSummary_NetsCreditAgainstDebit(t *testing.T) {
	maint := sampleClassification(1, "300")
	maint.CostCentreSlug = "maintenance"
	maint.TransactionTypeName = "Maintenance Paid"
	maint.TransactionTypeCode = "DR"
	repair := sampleClassification(2, "120")
	repair.CostCentreSlug = "maintenance"
	repair.TransactionTypeName = "Refund Received"
	repair.TransactionTypeCode = "CR"

	ds := &MockDataSource{
		MockActiveClassifications: func(context.Context, model.LedgerFilter) ([]model.Classification, error) {
			return []model.Classification{maint, repair}, nil
		},
	}
	svc := newTestService(ds)

	from := mar(1)
	to := mar(31)
	sum, err := svc.MIExpensesSummary(context.Background(), superUser(), &from, &to)
	assert.NoError(t, err)
	assert.Equal(t, "-180.00", sum.Total.StringFixed(2))
	assert.Equal(t, from, sum.From)
}

func TestMIExpensesByEntity_GroupsAndSorts(t *testing.T) {
	a := sampleClassification(1, "100")
	a.CostCentreSlug = "maintenance"
	a.EntityName = "Zenith Tower"
	a.TransactionTypeCode = "DR"
	b := sampleClassification(2, "40")
	b.CostCentreSlug = "maintenance"
	b.EntityName = "Aster Court"
	b.TransactionTypeCode = "DR"

	ds := &MockDataSource{
		MockActiveClassifications: func(context.Context, model.LedgerFilter) ([]model.Classification, error) {
			return []model.Classification{a, b}, nil
		},
	}
	svc := newTestService(ds)

	out, err := svc.MIExpensesByEntity(context.Background(), superUser(), nil, nil)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "Aster Court", out[0].Entity)
	assert.Equal(t, "-40.00", out[0].Balance.StringFixed(2))
	assert.Equal(t, "Zenith Tower", out[1].Entity)
}

func TestProjectProfitability_InflowsOutflowsNet(t *testing.T) {
	in := sampleClassification(1, "1000")
	in.EntityName = "Phase 1"
	in.TransactionTypeCode = "CR"
	out := sampleClassification(2, "350")
	out.EntityName = "Phase 1"
	out.TransactionTypeCode = "DR"
	other := sampleClassification(3, "75")
	other.EntityName = ""
	other.ContractName = "Vendor X Fitout"
	other.TransactionTypeCode = "DR"

	ds := &MockDataSource{
		MockActiveClassifications: func(context.Context, model.LedgerFilter) ([]model.Classification, error) {
			return []model.Classification{in, out, other}, nil
		},
	}
	svc := newTestService(ds)

	rows, err := svc.ProjectProfitability(context.Background(), superUser(), nil, nil, nil)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	// sorted by label
	assert.Equal(t, "Phase 1", rows[0].Project)
	assert.Equal(t, "1000.00", rows[0].Inflows.StringFixed(2))
	assert.Equal(t, "350.00", rows[0].Outflows.StringFixed(2))
	assert.Equal(t, "650.00", rows[0].Net.StringFixed(2))
	// entity-less row falls back to the contract label
	assert.Equal(t, "Vendor X Fitout", rows[1].Project)
}

func TestEntityQuickSearch_ClampsLimitAndScopes(t *testing.T) {
	var seenLimit int
	var seenScope []int64
	ds := &MockDataSource{
		MockSearchEntities: func(_ context.Context, _ string, companyIDs []int64, limit int) ([]model.Entity, error) {
			seenLimit = limit
			seenScope = companyIDs
			return []model.Entity{{ID: 4, Name: "Skyline"}}, nil
		},
	}
	svc := newTestService(ds)

	_, err := svc.EntityQuickSearch(context.Background(), superUser(), "sky", 0)
	assert.NoError(t, err)
	assert.Equal(t, 20, seenLimit)
	assert.Nil(t, seenScope)

	actor := model.Actor{UserID: "user_1", Role: model.RoleAccountant, CompanyIDs: []int64{3}}
	_, err = svc.EntityQuickSearch(context.Background(), actor, "sky", 500)
	assert.NoError(t, err)
	assert.Equal(t, 50, seenLimit)
	assert.Equal(t, []int64{3}, seenScope)
}

func TestDefaultPeriod(t *testing.T) {
	f, to := defaultPeriod(nil, nil)
	assert.Equal(t, time.January, f.Month())
	assert.Equal(t, 1, f.Day())
	assert.Equal(t, time.Now().Year(), f.Year())
	assert.True(t, to.After(f))
}
