package models

import "time"

// Student represents a learner tracked by the attendance system. IDs are
// assigned by the caller, matching the roster numbers schools already use.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Class     string    `db:"class" json:"class"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Class     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
