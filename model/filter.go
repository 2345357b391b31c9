package model

import "time"

// LedgerFilter narrows reconciled ledger queries. Nil pointer fields mean
// "no filter". CompanyIDs is empty for an unscoped actor.
type LedgerFilter struct {
	From           *time.Time
	To             *time.Time
	EntityID       *int64
	ProjectID      *int64
	ApartmentID    *int64
	CostCentreSlug string
	OnlyMaintInt   bool
	CompanyIDs     []int64
}

// Scoped reports whether any dimensional filter is set. Bank uploads are only
// consulted for unscoped queries.
func (f LedgerFilter) Scoped() bool {
	return f.EntityID != nil || f.ProjectID != nil || f.ApartmentID != nil
}
