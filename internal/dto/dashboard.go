package dto

import "github.com/noah-isme/school-portal-api/internal/models"

// AdminDashboardResponse captures the aggregated admin dashboard payload.
type AdminDashboardResponse struct {
	Users       AdminUserCounts `json:"users"`
	Departments int             `json:"departments"`
	Courses     int             `json:"courses"`
	Assignments int             `json:"assignments"`
	Submissions int             `json:"submissions"`
}

// AdminUserCounts breaks user totals down by role.
type AdminUserCounts struct {
	Admins    int `json:"admins"`
	Lecturers int `json:"lecturers"`
	Students  int `json:"students"`
}

// LecturerDashboardResponse lists what a lecturer teaches and has set.
type LecturerDashboardResponse struct {
	LecturerID  string                      `json:"lecturerId"`
	Courses     []models.Course             `json:"courses"`
	Assignments []LecturerAssignmentSummary `json:"assignments"`
}

// LecturerAssignmentSummary pairs an assignment with its submission counters.
type LecturerAssignmentSummary struct {
	models.Assignment
	SubmissionCount int `json:"submissionCount"`
	GradedCount     int `json:"gradedCount"`
}

// StudentDashboardResponse gathers a student's coursework view.
type StudentDashboardResponse struct {
	StudentID              string              `json:"studentId"`
	Assignments            []models.Assignment `json:"assignments"`
	SubmittedAssignmentIDs []string            `json:"submittedAssignmentIds"`
	RegisteredCourses      []models.Course     `json:"registeredCourses"`
	TotalCredits           int                 `json:"totalCredits"`
	AverageGrade           *float64            `json:"averageGrade"`
}
