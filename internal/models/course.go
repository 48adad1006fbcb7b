package models

import "time"

// MaxCreditUnits is the ceiling on the credit units a student may carry at once.
const MaxCreditUnits = 24

// Course is a unit of study offered by a department.
type Course struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	CourseCode     string    `db:"course_code" json:"course_code"`
	CreditUnits    int       `db:"credit_units" json:"credit_units"`
	DepartmentID   string    `db:"department_id" json:"department_id"`
	DepartmentName string    `db:"department_name" json:"department_name,omitempty"`
	LecturerID     *string   `db:"lecturer_id" json:"lecturer_id,omitempty"`
	LecturerName   *string   `db:"lecturer_name" json:"lecturer_name,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TaughtBy reports whether userID is the course's lecturer.
func (c *Course) TaughtBy(userID string) bool {
	return c != nil && c.LecturerID != nil && *c.LecturerID == userID
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	DepartmentID string
	LecturerID   string
	Search       string
	Page         int
	PageSize     int
}

// CreateCourseRequest is the payload for a new course.
type CreateCourseRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	CourseCode   string `json:"course_code" validate:"required,max=50"`
	CreditUnits  int    `json:"credit_units" validate:"required,min=1,max=24"`
	DepartmentID string `json:"department_id" validate:"required,uuid"`
}

// UpdateCourseRequest is the payload for editing a course.
type UpdateCourseRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	CourseCode  string `json:"course_code" validate:"required,max=50"`
	CreditUnits int    `json:"credit_units" validate:"required,min=1,max=24"`
}

// AssignLecturerRequest names the user that should teach a course.
type AssignLecturerRequest struct {
	LecturerID string `json:"lecturer_id" validate:"required"`
}

// CourseRegistration links a student to a course they carry.
type CourseRegistration struct {
	StudentID    string    `db:"student_id" json:"student_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// RegisteredCourses summarises a student's registered-course set.
type RegisteredCourses struct {
	Courses           []Course `json:"courses"`
	TotalCredits      int      `json:"total_credits"`
	AlreadyRegistered bool     `json:"already_registered,omitempty"`
}
