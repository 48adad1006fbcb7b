package models

import "time"

// CourseMaterial is a lecture file shared with a course.
type CourseMaterial struct {
	ID               string    `db:"id" json:"id"`
	CourseID         string    `db:"course_id" json:"course_id"`
	Title            string    `db:"title" json:"title"`
	FilePath         string    `db:"file_path" json:"-"`
	OriginalFileName string    `db:"original_file_name" json:"original_file_name"`
	UploadedBy       *string   `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedAt       time.Time `db:"uploaded_at" json:"uploaded_at"`
}
