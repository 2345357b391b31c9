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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/nivasa/nivasa/config"
	"github.com/nivasa/nivasa/internal/money"
	"github.com/nivasa/nivasa/model"
)

// amountFields carries whatever a source schema knows about a row's
// direction. resolveAmountPair walks them in priority order.
type amountFields struct {
	Credit        *decimal.Decimal // explicit credit column
	Debit         *decimal.Decimal // explicit debit column
	Signed        *decimal.Decimal // signed single amount
	Amount        *decimal.Decimal // unsigned amount needing a direction
	DirectionHint string           // short code or label, e.g. "cr", "DEBIT"
	TypeLabel     string           // transaction type display name
}

// resolveAmountPair normalizes any source schema to a non-negative
// credit/debit pair:
//  1. an explicit credit/debit column pair wins;
//  2. a signed amount splits on its sign;
//  3. a bare amount consults the direction hint, then transaction-type
//     keyword lists, then falls back to its sign;
//  4. no recognizable amount yields zero/zero.
func resolveAmountPair(af amountFields, rec config.ReconcilerConfig) (credit, debit decimal.Decimal) {
	if af.Credit != nil || af.Debit != nil {
		if af.Credit != nil {
			credit = *af.Credit
		}
		if af.Debit != nil {
			debit = *af.Debit
		}
		return credit, debit
	}

	if af.Signed != nil {
		if af.Signed.Sign() >= 0 {
			return *af.Signed, decimal.Zero
		}
		return decimal.Zero, af.Signed.Abs()
	}

	if af.Amount == nil {
		return decimal.Zero, decimal.Zero
	}
	amt := *af.Amount

	if hint := strings.ToLower(strings.TrimSpace(af.DirectionHint)); hint != "" {
		if hint == "cr" || hint == "c" || strings.Contains(hint, "credit") {
			return amt, decimal.Zero
		}
		if hint == "dr" || hint == "d" || strings.Contains(hint, "debit") {
			return decimal.Zero, amt
		}
	}

	if label := strings.ToLower(strings.TrimSpace(af.TypeLabel)); label != "" {
		if containsAny(label, rec.DebitKeywords) {
			return decimal.Zero, amt
		}
		if containsAny(label, rec.CreditKeywords) {
			return amt, decimal.Zero
		}
	}

	if amt.Sign() >= 0 {
		return amt, decimal.Zero
	}
	return decimal.Zero, amt.Abs()
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// matchesMaintInterior applies the maintenance-and-interior filter to a
// row's cost centre and transaction type, alias-driven from configuration.
// Rows whose source schema carries neither field pass unfiltered.
func matchesMaintInterior(ccName, ccSlug, ccCode, typeLabel string, rec config.ReconcilerConfig) bool {
	if ccName == "" && ccSlug == "" && ccCode == "" && typeLabel == "" {
		return true
	}
	for _, alias := range rec.MICostCentreAliases {
		a := strings.ToLower(alias)
		if ccSlug != "" && strings.ToLower(ccSlug) == a {
			return true
		}
		if ccCode != "" && strings.ToLower(ccCode) == a {
			return true
		}
		if ccName != "" && strings.Contains(strings.ToLower(ccName), a) {
			return true
		}
	}
	if typeLabel != "" {
		label := strings.ToLower(typeLabel)
		for _, alias := range rec.MITransactionTypeAliases {
			if strings.Contains(label, strings.ToLower(alias)) {
				return true
			}
		}
	}
	return false
}

// projectNameAndID derives the project dimension from an entity: a
// project-typed entity contributes its linked project when one is set,
// otherwise itself.
func projectNameAndID(entityID *int64, entityName, entityType string, linkedID *int64, linkedName string) (string, *int64) {
	if !strings.HasPrefix(strings.ToLower(entityType), "project") {
		return "", nil
	}
	if linkedID != nil && linkedName != "" {
		return linkedName, linkedID
	}
	return entityName, entityID
}

func mapClassificationRow(c model.Classification, rec config.ReconcilerConfig) model.LedgerRow {
	entityID := c.EntityID
	ccID := c.CostCentreID
	credit, debit := resolveAmountPair(amountFields{
		Amount:        &c.Amount,
		DirectionHint: c.TransactionTypeCode,
		TypeLabel:     c.TransactionTypeName,
	}, rec)
	project, projectID := projectNameAndID(&entityID, c.EntityName, c.EntityType, c.LinkedProjectID, c.LinkedProjectName)

	return model.LedgerRow{
		ValueDate:    c.ValueDate,
		TxnType:      c.TransactionTypeName,
		Credit:       money.Quantize2(credit),
		Debit:        money.Quantize2(debit),
		Remarks:      c.Remarks,
		Source:       model.SourceClassification,
		Entity:       c.EntityName,
		EntityType:   c.EntityType,
		CostCentre:   c.CostCentreName,
		Contract:     c.ContractName,
		Asset:        c.AssetName,
		Project:      project,
		EntityID:     &entityID,
		CostCentreID: &ccID,
		ContractID:   c.ContractID,
		AssetID:      c.AssetID,
		ProjectID:    projectID,
	}
}

func mapCashRow(e model.CashEntry, rec config.ReconcilerConfig) model.LedgerRow {
	entityID := e.EntityID
	ccID := e.CostCentreID
	credit, debit := resolveAmountPair(amountFields{
		Amount:        &e.Amount,
		DirectionHint: e.TransactionTypeCode,
		TypeLabel:     e.TransactionTypeName,
	}, rec)
	project, projectID := projectNameAndID(&entityID, e.EntityName, e.EntityType, e.LinkedProjectID, e.LinkedProjectName)

	return model.LedgerRow{
		ValueDate:    e.EntryDate,
		TxnType:      e.TransactionTypeName,
		Credit:       money.Quantize2(credit),
		Debit:        money.Quantize2(debit),
		Remarks:      e.Remarks,
		Source:       model.SourceCash,
		Entity:       e.EntityName,
		EntityType:   e.EntityType,
		CostCentre:   e.CostCentreName,
		Contract:     e.ContractName,
		Asset:        e.AssetName,
		Project:      project,
		EntityID:     &entityID,
		CostCentreID: &ccID,
		ContractID:   e.ContractID,
		AssetID:      e.AssetID,
		ProjectID:    projectID,
	}
}

func mapBankRow(t model.BankTransaction, rec config.ReconcilerConfig) model.LedgerRow {
	credit, debit := resolveAmountPair(amountFields{
		Credit: t.CreditAmount,
		Debit:  t.DebitAmount,
	}, rec)
	return model.LedgerRow{
		ValueDate: t.TransactionDate,
		Credit:    money.Quantize2(credit),
		Debit:     money.Quantize2(debit),
		Remarks:   t.Narration,
		Source:    model.SourceBank,
	}
}

// UnifiedLedger merges the three transaction sources into one ordered list.
// Classification splits are authoritative; the cash ledger is consulted only
// when classifications yield nothing under the same filters; raw bank rows
// are the final fallback and only for unscoped queries, since a global
// statement dump has no place in an entity or project view.
func (n *Nivasa) UnifiedLedger(ctx context.Context, actor model.Actor, filter model.LedgerFilter) ([]model.LedgerRow, error) {
	ctx, span := otel.Tracer("ledger").Start(ctx, "Building unified ledger")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	rec := cfg.Reconciler

	if !actor.Unscoped() {
		filter.CompanyIDs = actor.CompanyIDs
	}

	key := n.ledgerCacheKey(ctx, actor, filter)
	var cached cachedLedger
	if n.cache != nil {
		if err := n.cache.Get(ctx, key, &cached); err == nil && cached.Ok {
			return cached.Rows, nil
		}
	}

	var rows []model.LedgerRow

	classifications, err := n.datasource.ActiveClassifications(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, c := range classifications {
		if filter.OnlyMaintInt && !matchesMaintInterior(c.CostCentreName, c.CostCentreSlug, c.CostCentreCode, c.TransactionTypeName, rec) {
			continue
		}
		rows = append(rows, mapClassificationRow(c, rec))
	}
	usedClassify := len(rows) > 0

	if !usedClassify {
		entries, err := n.datasource.CashEntries(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if filter.OnlyMaintInt && !matchesMaintInterior(e.CostCentreName, e.CostCentreSlug, "", e.TransactionTypeName, rec) {
				continue
			}
			rows = append(rows, mapCashRow(e, rec))
		}
	}

	if !usedClassify && !filter.Scoped() {
		txns, err := n.datasource.BankTransactionsForLedger(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, t := range txns {
			rows = append(rows, mapBankRow(t, rec))
		}
	}

	model.SortLedgerRows(rows)

	if n.cache != nil {
		if err := n.cache.Set(ctx, key, cachedLedger{Rows: rows, Ok: true}, ledgerCacheTTL); err != nil {
			logrus.WithError(err).Warn("failed to cache unified ledger")
		}
	}
	return rows, nil
}

const (
	ledgerEpochKey = "ledger:epoch"
	ledgerCacheTTL = 5 * time.Minute
)

// cachedLedger wraps memoized ledger rows. Ok distinguishes a cached empty
// result from a cache miss.
type cachedLedger struct {
	Rows []model.LedgerRow `json:"rows"`
	Ok   bool              `json:"ok"`
}

// ledgerCacheKey derives a cache key from the actor's scope and the query
// filter, prefixed with the current epoch so a single epoch bump on any
// write invalidates every memoized ledger at once.
func (n *Nivasa) ledgerCacheKey(ctx context.Context, actor model.Actor, filter model.LedgerFilter) string {
	var epoch string
	if n.cache != nil {
		if err := n.cache.Get(ctx, ledgerEpochKey, &epoch); err != nil {
			epoch = ""
		}
	}
	payload, _ := json.Marshal(struct {
		Unscoped bool               `json:"unscoped"`
		Filter   model.LedgerFilter `json:"filter"`
	}{actor.Unscoped(), filter})
	sum := sha256.Sum256(payload)
	return "ledger:" + epoch + ":" + hex.EncodeToString(sum[:])
}

// invalidateLedgerCache rotates the ledger epoch after any write that can
// change reconciler output.
func (n *Nivasa) invalidateLedgerCache(ctx context.Context) {
	if n.cache == nil {
		return
	}
	if err := n.cache.Set(ctx, ledgerEpochKey, uuid.NewString(), 0); err != nil {
		logrus.WithError(err).Warn("failed to rotate ledger cache epoch")
	}
}
