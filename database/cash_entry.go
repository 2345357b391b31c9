package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/model"
)

const cashEntrySelect = `
	SELECT ce.cash_entry_id, ce.company_id,
	       ce.transaction_type_id, ce.cost_centre_id, ce.entity_id, ce.asset_id, ce.contract_id, ce.spent_by_id,
	       ce.amount, ce.chargeable, ce.margin, ce.balance_amount, ce.entry_date, ce.remarks,
	       ce.is_active, ce.created_by, ce.created_at,
	       tt.name, COALESCE(tt.code, ''), cc.name, cc.slug,
	       e.name, e.entity_type, e.linked_project_id, COALESCE(lp.name, ''),
	       COALESCE(a.name, ''), COALESCE(NULLIF(ct.name, ''), ct.vendor_name, ''), COALESCE(p.full_name, '')
	FROM cash_entries ce
	JOIN transaction_types tt ON tt.id = ce.transaction_type_id
	JOIN cost_centres cc ON cc.id = ce.cost_centre_id
	JOIN entities e ON e.id = ce.entity_id
	LEFT JOIN entities lp ON lp.id = e.linked_project_id
	LEFT JOIN assets a ON a.id = ce.asset_id
	LEFT JOIN contracts ct ON ct.id = ce.contract_id
	LEFT JOIN persons p ON p.id = ce.spent_by_id`

// CreateCashEntry inserts an entry with its running balance. The previous
// active entry of the company is read under FOR UPDATE inside the same
// transaction, so two concurrent entries cannot both chain off the same
// predecessor.
func (d Datasource) CreateCashEntry(ctx context.Context, entry *model.CashEntry) error {
	ctx, span := otel.Tracer("cash.ledger").Start(ctx, "Creating cash entry")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var previous decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT balance_amount FROM cash_entries
		WHERE company_id = $1 AND is_active = TRUE
		ORDER BY entry_date DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, entry.CompanyID).Scan(&previous)
	if err != nil && err != sql.ErrNoRows {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read previous cash balance", err)
	}

	if entry.CashEntryID == "" {
		entry.CashEntryID = GenerateUUIDWithSuffix("cash")
	}
	entry.BalanceAmount = entry.NextBalance(previous)
	entry.IsActive = true

	err = tx.QueryRowContext(ctx, `
		INSERT INTO cash_entries (cash_entry_id, company_id, transaction_type_id, cost_centre_id, entity_id, asset_id, contract_id, spent_by_id, amount, chargeable, margin, balance_amount, entry_date, remarks, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, TRUE, $15)
		RETURNING created_at
	`, entry.CashEntryID, entry.CompanyID, entry.TransactionType, entry.CostCentreID,
		entry.EntityID, entry.AssetID, entry.ContractID, entry.SpentByID,
		entry.Amount, entry.Chargeable, entry.Margin, entry.BalanceAmount,
		entry.EntryDate, entry.Remarks, entry.CreatedBy,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create cash entry", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit cash entry", err)
	}
	return nil
}

// GetCashEntry retrieves one entry by its cash entry ID, active or not.
func (d Datasource) GetCashEntry(ctx context.Context, id string) (*model.CashEntry, error) {
	row := d.Conn.QueryRowContext(ctx, cashEntrySelect+`
	WHERE ce.cash_entry_id = $1`, id)
	entry, err := scanCashEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Cash entry with ID '%s' not found", id), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve cash entry", err)
	}
	return entry, nil
}

// CashEntries returns active entries matching the filter, oldest first, with
// dimension names joined in for the reconciler.
func (d Datasource) CashEntries(ctx context.Context, filter model.LedgerFilter) ([]model.CashEntry, error) {
	query := cashEntrySelect + `
	WHERE ce.is_active = TRUE`
	var args []interface{}
	idx := 1
	if filter.From != nil {
		query += fmt.Sprintf(" AND ce.entry_date >= $%d", idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND ce.entry_date <= $%d", idx)
		args = append(args, *filter.To)
		idx++
	}
	if len(filter.CompanyIDs) > 0 {
		query += fmt.Sprintf(" AND ce.company_id = ANY($%d)", idx)
		args = append(args, pq.Array(filter.CompanyIDs))
		idx++
	}
	if filter.EntityID != nil {
		query += fmt.Sprintf(" AND ce.entity_id = $%d", idx)
		args = append(args, *filter.EntityID)
		idx++
	}
	if filter.CostCentreSlug != "" {
		query += fmt.Sprintf(" AND cc.slug = $%d", idx)
		args = append(args, filter.CostCentreSlug)
		idx++
	}
	query += " ORDER BY ce.entry_date, ce.id"

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve cash entries", err)
	}
	defer rows.Close()

	var out []model.CashEntry
	for rows.Next() {
		entry, err := scanCashEntry(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan cash entry", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over cash entries", err)
	}
	return out, nil
}

// DeactivateCashEntry soft-deletes an entry. Later balances are not
// recomputed.
func (d Datasource) DeactivateCashEntry(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE cash_entries SET is_active = FALSE WHERE cash_entry_id = $1
	`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to deactivate cash entry", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Cash entry with ID '%s' not found", id), nil)
	}
	return nil
}

// CurrentCashBalance returns the balance of the latest active entry within
// the given companies, zero when there are none. An empty slice means
// unscoped.
func (d Datasource) CurrentCashBalance(ctx context.Context, companyIDs []int64) (decimal.Decimal, error) {
	query := `
		SELECT balance_amount FROM cash_entries
		WHERE is_active = TRUE`
	var args []interface{}
	if len(companyIDs) > 0 {
		query += ` AND company_id = ANY($1)`
		args = append(args, pq.Array(companyIDs))
	}
	query += `
		ORDER BY entry_date DESC, id DESC
		LIMIT 1`

	var balance decimal.Decimal
	err := d.Conn.QueryRowContext(ctx, query, args...).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve cash balance", err)
	}
	return balance, nil
}

func scanCashEntry(row rowScanner) (*model.CashEntry, error) {
	entry := &model.CashEntry{}
	var margin decimal.NullDecimal
	err := row.Scan(
		&entry.CashEntryID, &entry.CompanyID,
		&entry.TransactionType, &entry.CostCentreID, &entry.EntityID, &entry.AssetID, &entry.ContractID, &entry.SpentByID,
		&entry.Amount, &entry.Chargeable, &margin, &entry.BalanceAmount, &entry.EntryDate, &entry.Remarks,
		&entry.IsActive, &entry.CreatedBy, &entry.CreatedAt,
		&entry.TransactionTypeName, &entry.TransactionTypeCode, &entry.CostCentreName, &entry.CostCentreSlug,
		&entry.EntityName, &entry.EntityType, &entry.LinkedProjectID, &entry.LinkedProjectName,
		&entry.AssetName, &entry.ContractName, &entry.SpentByName,
	)
	if err != nil {
		return nil, err
	}
	if margin.Valid {
		entry.Margin = &margin.Decimal
	}
	return entry, nil
}
