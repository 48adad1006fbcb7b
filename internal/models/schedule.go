package models

import "time"

// Weekdays accepted for class schedules.
var Weekdays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// ClassSchedule is a recurring weekly meeting of a course.
type ClassSchedule struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	DayOfWeek  string    `db:"day_of_week" json:"day_of_week"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Room       string    `db:"room" json:"room"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	CourseName string    `db:"course_name" json:"course_name,omitempty"`
}

// CreateScheduleRequest adds a weekly slot to a course.
type CreateScheduleRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Room      string `json:"room" validate:"max=100"`
}
