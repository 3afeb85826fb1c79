package placement

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "online-admission/errors"
)

func buildXLSX(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestOpenCSVMatchesHeadersByName(t *testing.T) {
	data := "\ufeffJHS Index No,Last Name,First Name,Status,Program,Aggregate of Best Six\n" +
		"0101,Mensah,Ama,Boarding,General Science,12\n" +
		",,,,,\n" +
		"0102,Owusu,Kofi,DAY,Business,\n"

	rows, err := Open("placements.csv", "", strings.NewReader(data))
	require.NoError(t, err)
	got, err := ReadAll(rows)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, Row{
		IndexNumber: "0101",
		LastName:    "Mensah",
		FirstName:   "Ama",
		Status:      "Boarding",
		Program:     "General Science",
		Aggregate:   "12",
	}, got[0])
	assert.Equal(t, "0102", got[1].IndexNumber)
	assert.Empty(t, got[1].Gender, "missing columns produce empty fields")
}

func TestOpenXLSX(t *testing.T) {
	buf := buildXLSX(t, [][]string{
		{"Program", "Aggregate of Best Six", "Date of Birth(dd/mm/yyyy)", "First Name", "Gender",
			"JHS Attended", "JHS Index No", "Last Name", "SMS Contact", "Status"},
		{"General Arts", "8", "02/03/2009", " Yaw ", "Male", "Accra JHS", "0201", "Boateng", "0244000000", "Day"},
		{},
		{"Home Economics", "", "", "Esi", "Female", "", "0202", "Asante", "", "boarding"},
	})

	rows, err := Open("list.xlsx", "", buf)
	require.NoError(t, err)
	got, err := ReadAll(rows)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Yaw", got[0].FirstName)
	assert.Equal(t, "02/03/2009", got[0].DateOfBirth)
	assert.Equal(t, "0244000000", got[0].SMSContact)
	assert.Equal(t, "0202", got[1].IndexNumber)
	assert.Equal(t, "Home Economics", got[1].Program)
}

func TestOpenFallsBackToMIMEType(t *testing.T) {
	rows, err := Open("upload", "text/csv; charset=utf-8", strings.NewReader("JHS Index No\n0301\n"))
	require.NoError(t, err)
	got, err := ReadAll(rows)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0301", got[0].IndexNumber)
}

func TestOpenRejectsUnsupportedFile(t *testing.T) {
	_, err := Open("placements.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))

	var pe *apperrors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "placements.pdf", pe.Filename)
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))
}

func TestOpenRejectsCorruptWorkbook(t *testing.T) {
	_, err := Open("broken.xlsx", "", strings.NewReader("not a zip archive"))

	var pe *apperrors.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestXLSRowDecodePanicBecomesParseError(t *testing.T) {
	// a source without a decoded sheet panics on the first row read
	rows := &sheetRows{src: &xlsSource{}, filename: "legacy.xls", cols: map[string]int{}}

	out, err := ReadAll(rows)

	assert.Empty(t, out)
	var pe *apperrors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "legacy.xls", pe.Filename)
	assert.Contains(t, pe.Error(), "corrupt xls stream")
}

func TestOpenRejectsEmptySheet(t *testing.T) {
	_, err := Open("empty.csv", "", strings.NewReader(""))

	var pe *apperrors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "sheet is empty", pe.Reason)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        Format
		ok          bool
	}{
		{"a.XLSX", "", FormatXLSX, true},
		{"a.xls", "", FormatXLS, true},
		{"a.csv", "application/octet-stream", FormatCSV, true},
		{"a", "application/vnd.ms-excel", FormatXLS, true},
		{"a.txt", "text/plain", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectFormat(tt.filename, tt.contentType)
		assert.Equal(t, tt.ok, ok, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}
}
