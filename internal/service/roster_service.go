package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/export"
)

var rosterHeaders = []string{"Full Name", "Matric Number", "Level", "Email", "Phone Number"}

type courseStudentLister interface {
	CourseStudents(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.Course, []models.User, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// RosterService renders course student lists for download.
type RosterService struct {
	courses courseStudentLister
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewRosterService constructs the service. Nil renderers fall back to the pkg/export defaults.
func NewRosterService(courses courseStudentLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *RosterService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{courses: courses, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the students of a course as CSV or PDF.
func (s *RosterService) Export(ctx context.Context, actor *models.JWTClaims, courseID string, format models.ExportFormat) (*models.RosterFile, error) {
	if !actor.Can(models.CapExportRoster) && !actor.Can(models.CapViewCourseStudents) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to export rosters")
	}
	if format == "" {
		format = models.ExportFormatCSV
	}
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	course, students, err := s.courses.CourseStudents(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	dataset := rosterDataset(students)

	base := "students_" + rosterFileStem(course.Name)
	var file models.RosterFile
	switch format {
	case models.ExportFormatPDF:
		body, err := s.pdf.Render(dataset, fmt.Sprintf("%s (%s) - Students", course.Name, course.CourseCode))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		file = models.RosterFile{FileName: base + ".pdf", ContentType: "application/pdf", Body: body}
	default:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		file = models.RosterFile{FileName: base + ".csv", ContentType: "text/csv", Body: body}
	}
	s.logger.Info("roster exported", zap.String("course_id", course.ID), zap.String("format", string(format)), zap.Int("students", len(students)))
	return &file, nil
}

func rosterDataset(students []models.User) export.Dataset {
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		matric := ""
		if st.MatricNumber != nil {
			matric = *st.MatricNumber
		}
		rows = append(rows, map[string]string{
			"Full Name":     st.FullName,
			"Matric Number": matric,
			"Level":         st.Level,
			"Email":         st.Email,
			"Phone Number":  st.PhoneNumber,
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}
}

// rosterFileStem keeps the course name but drops characters that break a Content-Disposition header.
func rosterFileStem(name string) string {
	stem := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/', '\r', '\n':
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if stem == "" {
		return "course"
	}
	return stem
}
