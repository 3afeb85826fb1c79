package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"online-admission/models"
)

// GenerateAdmissionLetter renders the admission letter PDF for a student.
func GenerateAdmissionLetter(school *models.School, admission *models.AdmissionConfig, student *models.Student, programName string, issued time.Time) ([]byte, error) {
	if programName == "" {
		programName = "To be assigned"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Admission Letter %s", student.IndexNumber), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(school.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{school.Location, school.Email, school.Phone} {
		if line != "" {
			pdf.CellFormat(0, 6, tr(line), "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Offer of Admission - %s", admission.Year), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, issued.Format("02 January 2006"))
	pdf.Ln(12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Dear %s,", student.FullName())))
	pdf.Ln(10)
	pdf.MultiCell(0, 7, tr(fmt.Sprintf(
		"We are pleased to offer you admission to %s for the %s academic year. "+
			"Please keep this letter; it is required on reporting day.", school.Name, admission.Year)), "", "L", false)
	pdf.Ln(4)

	rows := [][2]string{
		{"Index Number", student.IndexNumber},
		{"Admission Number", fmt.Sprintf("%d", student.AdmissionNumber)},
		{"Program", programName},
		{"Residential Status", student.Status},
		{"Gender", student.Gender},
		{"House", student.House},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(55, 8, r[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 8, tr(r[1]), "1", 1, "L", false, 0, "")
	}

	pdf.Ln(12)
	pdf.Cell(0, 8, "Congratulations.")
	pdf.Ln(10)
	pdf.Cell(0, 8, "Headmaster / Headmistress")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error generating admission letter PDF: %w", err)
	}
	return buf.Bytes(), nil
}
