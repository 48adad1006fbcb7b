package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

func TestRosterExportCSV(t *testing.T) {
	courses, _, _ := newCourseFixture()
	svc := NewRosterService(courses, nil, nil, nil)

	file, err := svc.Export(context.Background(), &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}, "c1", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "students_Intro to Java.csv", file.FileName)
	lines := strings.Split(strings.TrimSuffix(string(file.Body), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Full Name,Matric Number,Level,Email,Phone Number", lines[0])
	assert.Equal(t, `"Ada, ""Lovelace""",1234567,,,`, lines[1])

	pdf, err := svc.Export(context.Background(), &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}, "c1", models.ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf.Body), "%PDF-"))

	_, err = svc.Export(context.Background(), &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}, "c1", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
