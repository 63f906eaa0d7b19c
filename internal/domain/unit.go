package domain

import "time"

// Unit organizational unit (units table). Units form a forest via ParentID.
type Unit struct {
	UnitID    string    `json:"unit_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitNode tree projection of a unit with its sorted children.
type UnitNode struct {
	*Unit
	Children []*UnitNode `json:"children"`
}
