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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestDedupeKey_WhitespaceAndCaseInvariant(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	a := DedupeKey(date, "NEFT  Transfer   from ACME", d("1000"), "UTR123")
	b := DedupeKey(date, "neft transfer from acme", d("1000.00"), "utr123")
	assert.Equal(t, a, b)

	c := DedupeKey(date, "NEFT Transfer from ACME", d("1000"), "UTR124")
	assert.NotEqual(t, a, c)
}

func TestDedupeKey_AmountFormatStable(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// 250 and 250.00 must hash identically; 250.01 must not.
	assert.Equal(t,
		DedupeKey(date, "x", d("250"), ""),
		DedupeKey(date, "x", d("250.00"), ""))
	assert.NotEqual(t,
		DedupeKey(date, "x", d("250"), ""),
		DedupeKey(date, "x", d("250.01"), ""))
}

func TestComputeSignedAmount(t *testing.T) {
	tests := []struct {
		name   string
		credit *decimal.Decimal
		debit  *decimal.Decimal
		want   string
	}{
		{"credit only", dp("1000"), nil, "1000.00"},
		{"debit only", nil, dp("200.5"), "-200.50"},
		{"credit wins over zero debit", dp("500"), dp("0"), "500.00"},
		{"neither", nil, nil, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := BankTransaction{CreditAmount: tt.credit, DebitAmount: tt.debit}
			assert.Equal(t, tt.want, txn.ComputeSignedAmount().StringFixed(2))
		})
	}
}

func TestCanonText(t *testing.T) {
	assert.Equal(t, "a b", CanonText("  A   B "))
	assert.Equal(t, "", CanonText("   "))
	assert.Equal(t, "upi ref 99", CanonText("UPI\tREF\n99"))
}

func TestClassification_MarginNote(t *testing.T) {
	c := Classification{Remarks: "March rent | Margin: 1,500.00"}
	m := c.ParsedMargin()
	if assert.NotNil(t, m) {
		assert.Equal(t, "1500.00", m.StringFixed(2))
	}
	assert.Equal(t, "March rent", c.CleanedRemarks())

	plain := Classification{Remarks: "no note here"}
	assert.Nil(t, plain.ParsedMargin())
	assert.Equal(t, "no note here", plain.CleanedRemarks())
}

func TestAppendMarginNote(t *testing.T) {
	assert.Equal(t, "Margin: 50.00", AppendMarginNote("", d("50")))
	assert.Equal(t, "paint job | Margin: 50.00", AppendMarginNote("paint job", d("50")))
}

func TestCashEntry_Balances(t *testing.T) {
	plain := CashEntry{Amount: d("300")}
	assert.Equal(t, "700.00", plain.NextBalance(d("1000")).StringFixed(2))

	charged := CashEntry{Amount: d("300"), Chargeable: true, Margin: dp("50")}
	assert.Equal(t, "250.00", charged.EffectiveAmount().StringFixed(2))
	assert.Equal(t, "750.00", charged.NextBalance(d("1000")).StringFixed(2))

	// margin ignored when not chargeable
	notCharged := CashEntry{Amount: d("300"), Margin: dp("50")}
	assert.Equal(t, "300.00", notCharged.EffectiveAmount().StringFixed(2))
}

func TestSortLedgerRows(t *testing.T) {
	day1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	rows := []LedgerRow{
		{ValueDate: day2, TxnType: "Rent In", Remarks: "b"},
		{ValueDate: day1, TxnType: "Rent In", Remarks: "z"},
		{ValueDate: day2, TxnType: "Rent In", Remarks: "a"},
		{ValueDate: day2, TxnType: "", Remarks: "c"},
	}
	SortLedgerRows(rows)

	assert.Equal(t, "z", rows[0].Remarks)
	assert.Equal(t, "c", rows[1].Remarks) // empty txn_type sorts first within the day
	assert.Equal(t, "a", rows[2].Remarks)
	assert.Equal(t, "b", rows[3].Remarks)
}

func TestActor_Unscoped(t *testing.T) {
	assert.True(t, Actor{Role: RoleSuperUser}.Unscoped())
	assert.False(t, Actor{Role: RoleAccountant}.Unscoped())
}
