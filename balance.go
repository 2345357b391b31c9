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
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/model"
)

// missingDim labels absent dimension values in pivots, matching what the
// dashboard renders for them.
const missingDim = "—"

// RunningBalance annotates ordered ledger rows with a cumulative balance
// starting from the given opening.
func RunningBalance(rows []model.LedgerRow, opening decimal.Decimal) []model.LedgerRow {
	bal := opening
	out := make([]model.LedgerRow, len(rows))
	for i, r := range rows {
		bal = bal.Add(r.Net())
		b := bal
		r.Balance = &b
		out[i] = r
	}
	return out
}

// OpeningBalanceUntil sums the unified ledger strictly before the given day
// under the same filters, producing the opening balance for a statement that
// starts there.
func (n *Nivasa) OpeningBalanceUntil(ctx context.Context, actor model.Actor, untilExclusive time.Time, filter model.LedgerFilter) (decimal.Decimal, error) {
	if untilExclusive.IsZero() {
		return decimal.Zero, nil
	}
	prevDay := untilExclusive.AddDate(0, 0, -1)
	filter.To = &prevDay
	filter.From = nil

	rows, err := n.UnifiedLedger(ctx, actor, filter)
	if err != nil {
		return decimal.Zero, err
	}
	bal := decimal.Zero
	for _, r := range rows {
		bal = bal.Add(r.Net())
	}
	return bal, nil
}

// OpeningBalanceForEntityMonth is the opening balance of an entity statement
// for a "YYYY-MM" month.
func (n *Nivasa) OpeningBalanceForEntityMonth(ctx context.Context, actor model.Actor, entityID int64, month string) (decimal.Decimal, error) {
	start, _, err := MonthRange(month)
	if err != nil {
		return decimal.Zero, err
	}
	return n.OpeningBalanceUntil(ctx, actor, start, model.LedgerFilter{EntityID: &entityID})
}

// MonthRange expands "YYYY-MM" to the first and last day of that month, both
// inclusive.
func MonthRange(yyyyMM string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", yyyyMM)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(err, "bad month %q", yyyyMM)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end, nil
}

// FormatPeriod maps a date to a period label for the pivot's date dimension.
func FormatPeriod(d time.Time, granularity string) string {
	if d.IsZero() {
		return missingDim
	}
	switch strings.ToLower(granularity) {
	case "month":
		return d.Format("2006-01")
	case "quarter":
		q := (int(d.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", d.Year(), q)
	case "year":
		return fmt.Sprintf("%04d", d.Year())
	default:
		return d.Format("2006-01-02")
	}
}

func dimValue(r model.LedgerRow, dim, granularity string) string {
	var v string
	switch dim {
	case "date":
		return FormatPeriod(r.ValueDate, granularity)
	case "entity":
		v = r.Entity
	case "cost_centre":
		v = r.CostCentre
	case "contract":
		v = r.Contract
	case "asset":
		v = r.Asset
	case "project":
		v = r.Project
	case "txn_type":
		v = r.TxnType
	}
	if v == "" {
		return missingDim
	}
	return v
}

// PivotRequest is a financial-dashboard pivot query: group the unified
// ledger by the requested dimensions, optionally restricted to selected
// values per dimension.
type PivotRequest struct {
	Dims            []string            `json:"dims"`
	Values          map[string][]string `json:"values,omitempty"`
	DateGranularity string              `json:"date_granularity,omitempty"`
	From            *time.Time          `json:"from,omitempty"`
	To              *time.Time          `json:"to,omitempty"`
}

// PivotRow is one group: its dimension labels plus credit, debit and margin.
type PivotRow struct {
	Dims   map[string]string `json:"dims"`
	Credit decimal.Decimal   `json:"credit"`
	Debit  decimal.Decimal   `json:"debit"`
	Margin decimal.Decimal   `json:"margin"`
}

// PivotTotals aggregates the whole filtered set; Balance is the running
// balance across it in date order.
type PivotTotals struct {
	Credit  decimal.Decimal `json:"credit"`
	Debit   decimal.Decimal `json:"debit"`
	Margin  decimal.Decimal `json:"margin"`
	Balance decimal.Decimal `json:"balance"`
}

// PivotResult is the dashboard payload.
type PivotResult struct {
	Rows   []PivotRow  `json:"rows"`
	Totals PivotTotals `json:"totals"`
}

// Pivot builds the financial-dashboard pivot over the unified ledger.
func (n *Nivasa) Pivot(ctx context.Context, actor model.Actor, req PivotRequest) (*PivotResult, error) {
	from, to := defaultPeriod(req.From, req.To)

	rows, err := n.UnifiedLedger(ctx, actor, model.LedgerFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}

	allowed := func(r model.LedgerRow) bool {
		for _, d := range req.Dims {
			sel := req.Values[d]
			if len(sel) == 0 {
				continue
			}
			val := dimValue(r, d, req.DateGranularity)
			found := false
			for _, s := range sel {
				if s == val {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}

	type bucket struct {
		dims   map[string]string
		credit decimal.Decimal
		debit  decimal.Decimal
	}
	groups := make(map[string]*bucket)
	var order []string
	balance := decimal.Zero

	for _, r := range rows {
		if !allowed(r) {
			continue
		}
		balance = balance.Add(r.Net())

		labels := make(map[string]string, len(req.Dims))
		keyParts := make([]string, len(req.Dims))
		for i, d := range req.Dims {
			v := dimValue(r, d, req.DateGranularity)
			labels[d] = v
			keyParts[i] = v
		}
		key := strings.Join(keyParts, "\x00")
		g, ok := groups[key]
		if !ok {
			g = &bucket{dims: labels}
			groups[key] = g
			order = append(order, key)
		}
		g.credit = g.credit.Add(r.Credit)
		g.debit = g.debit.Add(r.Debit)
	}

	sort.Strings(order)
	result := &PivotResult{Rows: make([]PivotRow, 0, len(order))}
	for _, key := range order {
		g := groups[key]
		margin := g.credit.Sub(g.debit)
		result.Rows = append(result.Rows, PivotRow{
			Dims:   g.dims,
			Credit: g.credit,
			Debit:  g.debit,
			Margin: margin,
		})
		result.Totals.Credit = result.Totals.Credit.Add(g.credit)
		result.Totals.Debit = result.Totals.Debit.Add(g.debit)
		result.Totals.Margin = result.Totals.Margin.Add(margin)
	}
	result.Totals.Balance = balance
	return result, nil
}
