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
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/internal/money"
)

const SourceBank = "BANK"

// BankTransaction is one persisted statement row for a bank account.
// Rows are created during CSV ingestion, never updated in place and never
// hard-deleted: the dedupe key makes re-ingestion of the same statement a
// no-op instead of a correction problem.
type BankTransaction struct {
	ID              int64            `json:"-"`
	TransactionID   string           `json:"transaction_id"`
	BankAccountID   int64            `json:"bank_account_id"`
	UploadBatchID   string           `json:"upload_batch_id"`
	TransactionDate time.Time        `json:"transaction_date"`
	Narration       string           `json:"narration"`
	CreditAmount    *decimal.Decimal `json:"credit_amount,omitempty"`
	DebitAmount     *decimal.Decimal `json:"debit_amount,omitempty"`
	BalanceAmount   decimal.Decimal  `json:"balance_amount"`
	UTRNumber       string           `json:"utr_number,omitempty"`
	SignedAmount    decimal.Decimal  `json:"signed_amount"`
	DedupeKey       string           `json:"-"`
	Source          string           `json:"source"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ComputeSignedAmount derives the signed flow of the row: credit if present,
// else negated debit, else zero. Always 2dp quantized, because the result
// feeds both the continuity check and the dedupe key.
func (t *BankTransaction) ComputeSignedAmount() decimal.Decimal {
	switch {
	case t.CreditAmount != nil:
		return money.Quantize2(*t.CreditAmount)
	case t.DebitAmount != nil:
		return money.Quantize2(t.DebitAmount.Neg())
	default:
		return money.Quantize2(decimal.Zero)
	}
}

// BuildDedupeKey computes the row's content hash from its own fields.
func (t *BankTransaction) BuildDedupeKey() string {
	return DedupeKey(t.TransactionDate, t.Narration, t.SignedAmount, t.UTRNumber)
}

// DedupeKey is the content hash that identifies one real-world bank
// transaction across repeated or overlapping statement exports:
// sha256 over date|narration|signed amount|reference, with narration and
// reference lowercased and whitespace-collapsed and the amount rendered at
// exactly two decimals.
func DedupeKey(date time.Time, narration string, signed decimal.Decimal, ref string) string {
	payload := strings.Join([]string{
		date.Format("2006-01-02"),
		CanonText(narration),
		money.Format2(signed),
		CanonText(ref),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// CanonText collapses internal whitespace and lowercases, so cosmetic
// re-export differences do not defeat duplicate detection.
func CanonText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
