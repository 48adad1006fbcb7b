package models

import "time"

// AssignmentStatus tracks whether students can see an assignment.
type AssignmentStatus string

const (
	AssignmentStatusDraft     AssignmentStatus = "DRAFT"
	AssignmentStatusPublished AssignmentStatus = "PUBLISHED"
)

// Assignment is coursework published by a course lecturer.
type Assignment struct {
	ID           string           `db:"id" json:"id"`
	Title        string           `db:"title" json:"title"`
	Description  string           `db:"description" json:"description"`
	DueDate      time.Time        `db:"due_date" json:"due_date"`
	Level        string           `db:"level" json:"level"`
	Status       AssignmentStatus `db:"status" json:"status"`
	CreatedBy    string           `db:"created_by" json:"created_by"`
	DepartmentID string           `db:"department_id" json:"department_id"`
	CourseID     string           `db:"course_id" json:"course_id"`
	CourseName   string           `db:"course_name" json:"course_name,omitempty"`
	CourseCode   string           `db:"course_code" json:"course_code,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// OwnedBy reports whether userID created the assignment.
func (a *Assignment) OwnedBy(userID string) bool {
	return a != nil && a.CreatedBy == userID
}

// AssignmentFilter narrows assignment listings. Level is matched exactly.
type AssignmentFilter struct {
	DepartmentID string
	Level        string
	CreatedBy    string
	CourseID     string
	Status       AssignmentStatus
}

// Assignment form actions.
const (
	AssignmentActionDraft   = "draft"
	AssignmentActionPublish = "publish"
)

// CreateAssignmentRequest is the lecturer's new assignment form.
type CreateAssignmentRequest struct {
	CourseID    string     `json:"course_id"`
	Title       string     `json:"title" validate:"max=255"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Level       string     `json:"level" validate:"max=20"`
	Action      string     `json:"action" validate:"omitempty,oneof=draft publish"`
}

// UpdateAssignmentRequest edits an existing assignment.
type UpdateAssignmentRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date" validate:"required"`
	Action      string     `json:"action" validate:"omitempty,oneof=draft publish"`
}

// BulkDeleteRequest lists assignments to remove in one call.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}
