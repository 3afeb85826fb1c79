package placement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	apperrors "online-admission/errors"
)

// Fixed column headers of a placement list.
const (
	HeaderProgram     = "Program"
	HeaderAggregate   = "Aggregate of Best Six"
	HeaderDateOfBirth = "Date of Birth(dd/mm/yyyy)"
	HeaderFirstName   = "First Name"
	HeaderGender      = "Gender"
	HeaderJHSAttended = "JHS Attended"
	HeaderIndexNumber = "JHS Index No"
	HeaderLastName    = "Last Name"
	HeaderSMSContact  = "SMS Contact"
	HeaderStatus      = "Status"
)

// Headers lists the fixed placement columns in export order.
var Headers = []string{
	HeaderIndexNumber, HeaderFirstName, HeaderLastName, HeaderGender, HeaderStatus,
	HeaderProgram, HeaderAggregate, HeaderJHSAttended, HeaderDateOfBirth, HeaderSMSContact,
}

// Format is a supported spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// Row is one placement line keyed by the fixed headers. Values are raw text.
type Row struct {
	Program     string
	Aggregate   string
	DateOfBirth string
	FirstName   string
	Gender      string
	JHSAttended string
	IndexNumber string
	LastName    string
	SMSContact  string
	Status      string
}

// Rows iterates the data rows of an uploaded sheet. It is lazy, finite and
// cannot be restarted.
type Rows interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// rowSource yields raw cell slices and io.EOF when exhausted.
type rowSource interface {
	next() ([]string, error)
	close() error
}

// DetectFormat picks the spreadsheet format from the file extension, falling
// back to the declared MIME type.
func DetectFormat(filename, contentType string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return FormatXLSX, true
	case ".xls":
		return FormatXLS, true
	case ".csv":
		return FormatCSV, true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mediaType {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, true
	case "application/vnd.ms-excel":
		return FormatXLS, true
	case "text/csv", "application/csv":
		return FormatCSV, true
	}
	return "", false
}

// Open decodes the first sheet of an uploaded placement list and returns an
// iterator over its data rows. The header row is consumed here.
func Open(filename, contentType string, r io.Reader) (Rows, error) {
	format, ok := DetectFormat(filename, contentType)
	if !ok {
		return nil, &apperrors.ParseError{Filename: filename, Reason: "unsupported file type"}
	}

	var (
		src rowSource
		err error
	)
	switch format {
	case FormatXLSX:
		src, err = openXLSX(r)
	case FormatXLS:
		src, err = openXLS(r)
	case FormatCSV:
		src, err = openCSV(r)
	}
	if err != nil {
		return nil, &apperrors.ParseError{Filename: filename, Reason: "cannot open " + string(format) + " workbook", Err: err}
	}

	header, err := src.next()
	if err == io.EOF {
		src.close()
		return nil, &apperrors.ParseError{Filename: filename, Reason: "sheet is empty"}
	}
	if err != nil {
		src.close()
		return nil, &apperrors.ParseError{Filename: filename, Reason: "cannot read header row", Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &sheetRows{src: src, filename: filename, cols: detectColumns(header)}, nil
}

// ReadAll drains rows and closes them.
func ReadAll(rows Rows) ([]Row, error) {
	defer rows.Close()
	var out []Row
	for rows.Next() {
		out = append(out, rows.Row())
	}
	return out, rows.Err()
}

type sheetRows struct {
	src      rowSource
	filename string
	cols     map[string]int
	cur      Row
	err      error
	done     bool
}

func (s *sheetRows) Next() bool {
	if s.done {
		return false
	}
	for {
		cells, err := s.src.next()
		if err == io.EOF {
			s.done = true
			return false
		}
		if err != nil {
			s.err = &apperrors.ParseError{Filename: s.filename, Reason: "cannot read row", Err: err}
			s.done = true
			return false
		}
		if isBlank(cells) {
			continue
		}
		s.cur = s.rowFrom(cells)
		return true
	}
}

func (s *sheetRows) Row() Row { return s.cur }

func (s *sheetRows) Err() error { return s.err }

func (s *sheetRows) Close() error {
	s.done = true
	return s.src.close()
}

func (s *sheetRows) rowFrom(cells []string) Row {
	return Row{
		Program:     extractField(cells, s.cols[HeaderProgram]),
		Aggregate:   extractField(cells, s.cols[HeaderAggregate]),
		DateOfBirth: extractField(cells, s.cols[HeaderDateOfBirth]),
		FirstName:   extractField(cells, s.cols[HeaderFirstName]),
		Gender:      extractField(cells, s.cols[HeaderGender]),
		JHSAttended: extractField(cells, s.cols[HeaderJHSAttended]),
		IndexNumber: extractField(cells, s.cols[HeaderIndexNumber]),
		LastName:    extractField(cells, s.cols[HeaderLastName]),
		SMSContact:  extractField(cells, s.cols[HeaderSMSContact]),
		Status:      extractField(cells, s.cols[HeaderStatus]),
	}
}

// detectColumns finds column indices by exact header name. Missing headers
// map to -1.
func detectColumns(headers []string) map[string]int {
	indices := make(map[string]int, len(Headers))
	for _, h := range Headers {
		indices[h] = -1
	}
	for i, header := range headers {
		name := strings.TrimSpace(header)
		if idx, ok := indices[name]; ok && idx == -1 {
			indices[name] = i
		}
	}
	return indices
}

// extractField safely extracts a field from a row
func extractField(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type xlsxSource struct {
	file *excelize.File
	rows *excelize.Rows
}

func openXLSX(r io.Reader) (rowSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("no sheets found in workbook")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, err
	}
	return &xlsxSource{file: f, rows: rows}, nil
}

func (x *xlsxSource) next() ([]string, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return x.rows.Columns()
}

func (x *xlsxSource) close() error {
	rerr := x.rows.Close()
	if err := x.file.Close(); err != nil {
		return err
	}
	return rerr
}

type xlsSource struct {
	sheet *xls.WorkSheet
	pos   int
}

func openXLS(r io.Reader) (src rowSource, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	defer recoverCorruptXLS(&err)
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("no sheets found in workbook")
	}
	return &xlsSource{sheet: sheet}, nil
}

// recoverCorruptXLS turns a panic of the legacy decoder, which it raises on
// some malformed streams, into an error.
func recoverCorruptXLS(err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("corrupt xls stream: %v", p)
	}
}

func (x *xlsSource) next() (cells []string, err error) {
	defer recoverCorruptXLS(&err)
	for x.pos <= int(x.sheet.MaxRow) {
		i := x.pos
		x.pos++
		row := x.sheet.Row(i)
		if row == nil {
			return []string{}, nil
		}
		cells = make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		return cells, nil
	}
	return nil, io.EOF
}

func (x *xlsSource) close() error { return nil }

type csvSource struct {
	r *csv.Reader
}

func openCSV(r io.Reader) (rowSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &csvSource{r: cr}, nil
}

func (c *csvSource) next() ([]string, error) {
	return c.r.Read()
}

func (c *csvSource) close() error { return nil }
