package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset() Dataset {
	return Dataset{
		Headers: []string{"Full Name", "Matric Number", "Level", "Email", "Phone Number"},
		Rows: []map[string]string{
			{"Full Name": "Doe, Jane", "Matric Number": "1234567", "Level": "100L", "Email": "jane@x.com", "Phone Number": ""},
			{"Full Name": `Ada "Countess" Lovelace`, "Matric Number": "", "Level": "200L", "Email": "ada@x.com", "Phone Number": "555"},
		},
	}
}

func TestEscapeField(t *testing.T) {
	cases := map[string]string{
		"plain":           "plain",
		"":                "",
		" leading space":  " leading space",
		"a,b":             `"a,b"`,
		"line\nbreak":     "\"line\nbreak\"",
		`say "hi"`:        `"say ""hi"""`,
		"carriage\rret":   "carriage\rret",
	}
	for in, want := range cases {
		assert.Equal(t, want, EscapeField(in), in)
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)

	want := "Full Name,Matric Number,Level,Email,Phone Number\n" +
		"\"Doe, Jane\",1234567,100L,jane@x.com,\n" +
		"\"Ada \"\"Countess\"\" Lovelace\",,200L,ada@x.com,555\n"
	assert.Equal(t, want, string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := rosterDataset()
	for i := 0; i < 60; i++ {
		data.Rows = append(data.Rows, map[string]string{"Full Name": fmt.Sprintf("Student %d", i)})
	}
	out, err := NewPDFExporter().Render(data, "Intro to Java students")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter().Render(Dataset{}, "")
	require.Error(t, err)
}
