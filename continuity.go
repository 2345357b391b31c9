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
	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/internal/money"
)

// checkContinuity verifies that each row's balance equals the previous
// balance plus its signed amount, in the given order. The opening balance is
// implied from the first row: balance minus signed amount. Returns the
// implied opening when the chain holds.
func checkContinuity(rows []StatementRow) (bool, *decimal.Decimal) {
	if len(rows) == 0 {
		return true, nil
	}
	prev := money.Quantize2(rows[0].BalanceAmount.Sub(rows[0].SignedAmount))
	opening := prev
	for _, r := range rows {
		expected := money.Quantize2(prev.Add(money.Quantize2(r.SignedAmount)))
		if !expected.Equal(money.Quantize2(r.BalanceAmount)) {
			return false, nil
		}
		prev = money.Quantize2(r.BalanceAmount)
	}
	return true, &opening
}

// ContinuityAndOpening validates the balance chain in file order and, when
// that fails, in reverse, since banks export newest-first as often as
// oldest-first. Returns the order that validated; the original order when
// neither does.
func ContinuityAndOpening(rows []StatementRow) (bool, *decimal.Decimal, []StatementRow) {
	ok, opening := checkContinuity(rows)
	if ok {
		return true, opening, rows
	}
	reversed := make([]StatementRow, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}
	if ok, opening := checkContinuity(reversed); ok {
		return true, opening, reversed
	}
	return false, nil, rows
}
