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

// Package money holds the fixed-point helpers every monetary value in the
// system goes through. All persistence, comparison and hashing of amounts
// happens on 2dp half-up quantized decimals so floating noise can never
// produce a false continuity failure or a false duplicate.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// ToMoney converts any numeric-like input to a decimal. It never fails:
// nil and unparsable inputs collapse to zero.
func ToMoney(v interface{}) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		return *x
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case float64:
		return decimal.NewFromFloat(x)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// Quantize2 rounds to exactly two fractional digits, half away from zero.
func Quantize2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format2 renders an amount with exactly two fractional digits, the
// representation used inside dedupe-key payloads. It must stay stable
// across releases or previously ingested rows stop deduplicating.
func Format2(d decimal.Decimal) string {
	return Quantize2(d).StringFixed(2)
}
