package models

import "time"

// Submission is a student's uploaded answer to an assignment. One per student and assignment.
type Submission struct {
	ID                string     `db:"id" json:"id"`
	StudentID         string     `db:"student_id" json:"student_id"`
	AssignmentID      string     `db:"assignment_id" json:"assignment_id"`
	SubmissionContent string     `db:"submission_content" json:"submission_content"`
	OriginalFileName  string     `db:"original_file_name" json:"original_file_name"`
	ContentType       string     `db:"content_type" json:"content_type,omitempty"`
	Grade             *int       `db:"grade" json:"grade,omitempty"`
	Feedback          string     `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt       time.Time  `db:"submitted_at" json:"submitted_at"`
	GradedAt          *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	StudentName       string     `db:"student_name" json:"student_name,omitempty"`
	MatricNumber      *string    `db:"matric_number" json:"matric_number,omitempty"`
	AssignmentTitle   string     `db:"assignment_title" json:"assignment_title,omitempty"`
}

// GradeSubmissionRequest carries a lecturer's mark.
type GradeSubmissionRequest struct {
	Grade    *int   `json:"grade" validate:"required,min=0,max=100"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

// GradeAverage is the mean grade over graded submissions.
type GradeAverage struct {
	Average *float64 `db:"average" json:"average"`
	Graded  int      `db:"graded" json:"graded"`
}

// SubmissionDownload is a signed link to a stored submission file.
type SubmissionDownload struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
