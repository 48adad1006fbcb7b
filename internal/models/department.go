package models

import "time"

// Department groups courses, lecturers and students.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SaveDepartmentRequest creates a department or renames it when ID is set.
type SaveDepartmentRequest struct {
	ID   string `json:"id" validate:"omitempty,uuid"`
	Name string `json:"name" validate:"required,max=255"`
}
