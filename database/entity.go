package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/nivasa/nivasa/internal/apierror"
	"github.com/nivasa/nivasa/model"
)

func (d Datasource) GetEntity(ctx context.Context, id int64) (*model.Entity, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT e.id, e.company_id, e.name, e.entity_type, e.linked_project_id, COALESCE(lp.name, ''), e.created_at
		FROM entities e
		LEFT JOIN entities lp ON lp.id = e.linked_project_id
		WHERE e.id = $1
	`, id)

	entity, err := scanEntity(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Entity with ID '%d' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve entity", err)
	}
	return entity, nil
}

// SearchEntities does a case-insensitive substring match on entity names,
// scoped by company for non-super actors.
func (d Datasource) SearchEntities(ctx context.Context, query string, companyIDs []int64, limit int) ([]model.Entity, error) {
	sqlQuery := `
		SELECT e.id, e.company_id, e.name, e.entity_type, e.linked_project_id, COALESCE(lp.name, ''), e.created_at
		FROM entities e
		LEFT JOIN entities lp ON lp.id = e.linked_project_id
		WHERE e.name ILIKE $1`
	args := []interface{}{"%" + query + "%"}
	idx := 2
	if len(companyIDs) > 0 {
		sqlQuery += fmt.Sprintf(" AND e.company_id = ANY($%d)", idx)
		args = append(args, pq.Array(companyIDs))
		idx++
	}
	sqlQuery += fmt.Sprintf(" ORDER BY e.name LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := d.Conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to search entities", err)
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan entity", err)
		}
		entities = append(entities, *entity)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over entities", err)
	}
	return entities, nil
}

func scanEntity(row rowScanner) (*model.Entity, error) {
	entity := &model.Entity{}
	err := row.Scan(&entity.ID, &entity.CompanyID, &entity.Name, &entity.EntityType,
		&entity.LinkedProjectID, &entity.LinkedProjectName, &entity.CreatedAt)
	if err != nil {
		return nil, err
	}
	return entity, nil
}
