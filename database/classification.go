package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/model"
)

// classificationSelect joins the dimension tables so callers get display
// names alongside IDs. lp is the linked project entity, when the entity is
// project-typed.
const classificationSelect = `
	SELECT c.classification_id, c.bank_transaction_id, c.company_id,
	       c.transaction_type_id, c.cost_centre_id, c.entity_id, c.asset_id, c.contract_id,
	       c.amount, c.value_date, c.remarks, c.replaces_ids, c.created_by, c.created_at,
	       tt.name, COALESCE(tt.code, ''), cc.name, cc.slug, COALESCE(cc.code, ''),
	       e.name, e.entity_type, e.linked_project_id, COALESCE(lp.name, ''),
	       COALESCE(a.name, ''), COALESCE(NULLIF(ct.name, ''), ct.vendor_name, '')
	FROM classifications c
	JOIN transaction_types tt ON tt.id = c.transaction_type_id
	JOIN cost_centres cc ON cc.id = c.cost_centre_id
	JOIN entities e ON e.id = c.entity_id
	LEFT JOIN entities lp ON lp.id = e.linked_project_id
	LEFT JOIN assets a ON a.id = c.asset_id
	LEFT JOIN contracts ct ON ct.id = c.contract_id`

// activeCond keeps only rows no later row has superseded. The log is
// append-only, so activity is derived rather than stored.
const activeCond = `NOT EXISTS (SELECT 1 FROM classifications r WHERE c.classification_id = ANY(r.replaces_ids))`

// CreateClassifications inserts a set of rows in one transaction. Split and
// reclassify operations pass the replacement rows together so the log never
// shows a half-applied split.
func (d Datasource) CreateClassifications(ctx context.Context, rows []*model.Classification) error {
	ctx, span := otel.Tracer("classification").Start(ctx, "Appending classification rows")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO classifications (classification_id, bank_transaction_id, company_id, transaction_type_id, cost_centre_id, entity_id, asset_id, contract_id, amount, value_date, remarks, replaces_ids, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to prepare classification insert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if row.ClassificationID == "" {
			row.ClassificationID = GenerateUUIDWithSuffix("cls")
		}
		err := stmt.QueryRowContext(ctx,
			row.ClassificationID, row.BankTxnID, row.CompanyID,
			row.TransactionType, row.CostCentreID, row.EntityID, row.AssetID, row.ContractID,
			row.Amount, row.ValueDate, row.Remarks, pq.Array(row.Replaces), row.CreatedBy,
		).Scan(&row.CreatedAt)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert classification", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit classifications", err)
	}
	return nil
}

func (d Datasource) GetClassification(ctx context.Context, id string) (*model.Classification, error) {
	row := d.Conn.QueryRowContext(ctx, classificationSelect+`
		WHERE c.classification_id = $1
	`, id)

	cls, err := scanClassification(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Classification with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve classification", err)
	}
	return cls, nil
}

// ClassificationsForTransaction lists the rows of one bank transaction, the
// full history or just the active frontier.
func (d Datasource) ClassificationsForTransaction(ctx context.Context, bankTxnID string, activeOnly bool) ([]model.Classification, error) {
	query := classificationSelect + `
		WHERE c.bank_transaction_id = $1`
	if activeOnly {
		query += ` AND ` + activeCond
	}
	query += ` ORDER BY c.created_at, c.id`

	rows, err := d.Conn.QueryContext(ctx, query, bankTxnID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve classifications", err)
	}
	defer rows.Close()
	return collectClassifications(rows)
}

// ActiveClassifications returns the active rows matching the filter, the
// primary source of the unified ledger.
func (d Datasource) ActiveClassifications(ctx context.Context, filter model.LedgerFilter) ([]model.Classification, error) {
	ctx, span := otel.Tracer("ledger").Start(ctx, "Loading active classifications")
	defer span.End()

	query := classificationSelect + `
	WHERE ` + activeCond
	var args []interface{}
	idx := 1
	if filter.From != nil {
		query += fmt.Sprintf(" AND c.value_date >= $%d", idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND c.value_date <= $%d", idx)
		args = append(args, *filter.To)
		idx++
	}
	if len(filter.CompanyIDs) > 0 {
		query += fmt.Sprintf(" AND c.company_id = ANY($%d)", idx)
		args = append(args, pq.Array(filter.CompanyIDs))
		idx++
	}
	if filter.EntityID != nil {
		query += fmt.Sprintf(" AND c.entity_id = $%d", idx)
		args = append(args, *filter.EntityID)
		idx++
	}
	if filter.CostCentreSlug != "" {
		query += fmt.Sprintf(" AND cc.slug = $%d", idx)
		args = append(args, filter.CostCentreSlug)
		idx++
	}
	query += " ORDER BY c.value_date, c.id"

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve active classifications", err)
	}
	defer rows.Close()
	return collectClassifications(rows)
}

func scanClassification(row rowScanner) (*model.Classification, error) {
	cls := &model.Classification{}
	err := row.Scan(
		&cls.ClassificationID, &cls.BankTxnID, &cls.CompanyID,
		&cls.TransactionType, &cls.CostCentreID, &cls.EntityID, &cls.AssetID, &cls.ContractID,
		&cls.Amount, &cls.ValueDate, &cls.Remarks, pq.Array(&cls.Replaces), &cls.CreatedBy, &cls.CreatedAt,
		&cls.TransactionTypeName, &cls.TransactionTypeCode, &cls.CostCentreName, &cls.CostCentreSlug, &cls.CostCentreCode,
		&cls.EntityName, &cls.EntityType, &cls.LinkedProjectID, &cls.LinkedProjectName,
		&cls.AssetName, &cls.ContractName,
	)
	if err != nil {
		return nil, err
	}
	return cls, nil
}

func collectClassifications(rows *sql.Rows) ([]model.Classification, error) {
	var out []model.Classification
	for rows.Next() {
		cls, err := scanClassification(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan classification", err)
		}
		out = append(out, *cls)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over classifications", err)
	}
	return out, nil
}
