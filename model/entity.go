package model

import (
	"strings"
	"time"
)

// Entity is the counterparty dimension: a property, project, contact or
// internal account. Project-typed entities may point at a linked project
// entity used for project-level reporting.
type Entity struct {
	ID                int64     `json:"id"`
	CompanyID         int64     `json:"company_id"`
	Name              string    `json:"name"`
	EntityType        string    `json:"entity_type"`
	LinkedProjectID   *int64    `json:"linked_project_id,omitempty"`
	LinkedProjectName string    `json:"linked_project,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// IsProject reports whether the entity represents a project. The check is a
// prefix match so subtype labels like "Project - Residential" qualify.
func (e Entity) IsProject() bool {
	return strings.HasPrefix(strings.ToLower(e.EntityType), "project")
}

// BankAccount is an uploadable statement source owned by a company.
type BankAccount struct {
	ID            int64     `json:"id"`
	CompanyID     int64     `json:"company_id"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	CreatedAt     time.Time `json:"created_at"`
}
