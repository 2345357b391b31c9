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
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/internal/money"
	"github.com/nivasa/nivasa/model"
)

// EntityStatement is the entity-wise monthly statement: the entity's ledger
// rows for one month with running balances chained off an opening balance
// summed strictly before the month.
func (n *Nivasa) EntityStatement(ctx context.Context, actor model.Actor, entityID int64, month string) ([]model.LedgerRow, error) {
	start, end, err := MonthRange(month)
	if err != nil {
		return nil, err
	}

	opening, err := n.OpeningBalanceUntil(ctx, actor, start, model.LedgerFilter{EntityID: &entityID})
	if err != nil {
		return nil, err
	}

	rows, err := n.UnifiedLedger(ctx, actor, model.LedgerFilter{From: &start, To: &end, EntityID: &entityID})
	if err != nil {
		return nil, err
	}
	return RunningBalance(rows, opening), nil
}

// MISummary is the maintenance-and-interior expense roll-up for a period.
type MISummary struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Total decimal.Decimal `json:"total"`
}

// MIExpensesSummary sums net maintenance-and-interior movement over a period,
// defaulting to the current calendar year to date.
func (n *Nivasa) MIExpensesSummary(ctx context.Context, actor model.Actor, from, to *time.Time) (*MISummary, error) {
	f, t := defaultPeriod(from, to)
	rows, err := n.UnifiedLedger(ctx, actor, model.LedgerFilter{From: &f, To: &t, OnlyMaintInt: true})
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Net())
	}
	return &MISummary{From: f, To: t, Total: money.Quantize2(total)}, nil
}

// EntityBalance is one entity's net position within a report.
type EntityBalance struct {
	EntityID *int64          `json:"id,omitempty"`
	Entity   string          `json:"entity"`
	Balance  decimal.Decimal `json:"balance"`
}

// MIExpensesByEntity groups maintenance-and-interior movement per entity,
// sorted by entity name.
func (n *Nivasa) MIExpensesByEntity(ctx context.Context, actor model.Actor, from, to *time.Time) ([]EntityBalance, error) {
	f, t := defaultPeriod(from, to)
	rows, err := n.UnifiedLedger(ctx, actor, model.LedgerFilter{From: &f, To: &t, OnlyMaintInt: true})
	if err != nil {
		return nil, err
	}

	type key struct {
		id   int64
		name string
	}
	agg := make(map[key]decimal.Decimal)
	ids := make(map[key]*int64)
	for _, r := range rows {
		k := key{name: r.Entity}
		if k.name == "" {
			k.name = missingDim
		}
		if r.EntityID != nil {
			k.id = *r.EntityID
		}
		agg[k] = agg[k].Add(r.Net())
		ids[k] = r.EntityID
	}

	out := make([]EntityBalance, 0, len(agg))
	for k, v := range agg {
		out = append(out, EntityBalance{EntityID: ids[k], Entity: k.name, Balance: money.Quantize2(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out, nil
}

// MIExpensesTransactions lists the maintenance-and-interior rows themselves,
// optionally narrowed to one entity, with running balances from zero.
func (n *Nivasa) MIExpensesTransactions(ctx context.Context, actor model.Actor, from, to *time.Time, entityID *int64) ([]model.LedgerRow, error) {
	f, t := defaultPeriod(from, to)
	rows, err := n.UnifiedLedger(ctx, actor, model.LedgerFilter{From: &f, To: &t, EntityID: entityID, OnlyMaintInt: true})
	if err != nil {
		return nil, err
	}
	return RunningBalance(rows, decimal.Zero), nil
}

// ProjectProfitRow is one project's inflow/outflow summary.
type ProjectProfitRow struct {
	Project  string          `json:"project"`
	Inflows  decimal.Decimal `json:"inflows"`
	Outflows decimal.Decimal `json:"outflows"`
	Net      decimal.Decimal `json:"net"`
}

// ProjectProfitability groups ledger movement per project label, falling back
// to the contract name when a row has no entity. Sorted by project label.
func (n *Nivasa) ProjectProfitability(ctx context.Context, actor model.Actor, from, to *time.Time, projectID *int64) ([]ProjectProfitRow, error) {
	f, t := defaultPeriod(from, to)
	rows, err := n.UnifiedLedger(ctx, actor, model.LedgerFilter{From: &f, To: &t, ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	type sums struct{ in, out decimal.Decimal }
	agg := make(map[string]*sums)
	for _, r := range rows {
		label := r.Entity
		if label == "" {
			label = r.Contract
		}
		if label == "" {
			label = missingDim
		}
		s, ok := agg[label]
		if !ok {
			s = &sums{}
			agg[label] = s
		}
		s.in = s.in.Add(r.Credit)
		s.out = s.out.Add(r.Debit)
	}

	out := make([]ProjectProfitRow, 0, len(agg))
	for label, s := range agg {
		out = append(out, ProjectProfitRow{
			Project:  label,
			Inflows:  money.Quantize2(s.in),
			Outflows: money.Quantize2(s.out),
			Net:      money.Quantize2(s.in.Sub(s.out)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project < out[j].Project })
	return out, nil
}

// ProjectProfitabilityTransactions lists the underlying rows for the
// profitability report with running balances from zero.
func (n *Nivasa) ProjectProfitabilityTransactions(ctx context.Context, actor model.Actor, from, to *time.Time, projectID *int64) ([]model.LedgerRow, error) {
	f, t := defaultPeriod(from, to)
	rows, err := n.UnifiedLedger(ctx, actor, model.LedgerFilter{From: &f, To: &t, ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return RunningBalance(rows, decimal.Zero), nil
}

const (
	entitySearchDefaultLimit = 20
	entitySearchMaxLimit     = 50
)

// EntityQuickSearch is a read-only helper for UIs to resolve entity IDs by
// name fragment.
func (n *Nivasa) EntityQuickSearch(ctx context.Context, actor model.Actor, query string, limit int) ([]model.Entity, error) {
	if limit <= 0 {
		limit = entitySearchDefaultLimit
	}
	if limit > entitySearchMaxLimit {
		limit = entitySearchMaxLimit
	}
	var scope []int64
	if !actor.Unscoped() {
		if len(actor.CompanyIDs) == 0 {
			return nil, nil
		}
		scope = actor.CompanyIDs
	}
	return n.datasource.SearchEntities(ctx, query, scope, limit)
}

// defaultPeriod fills in the current calendar year to date.
func defaultPeriod(from, to *time.Time) (time.Time, time.Time) {
	now := time.Now().UTC()
	f := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	t := now
	if from != nil {
		f = *from
	}
	if to != nil {
		t = *to
	}
	return f, t
}
