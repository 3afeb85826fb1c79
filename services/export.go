package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"online-admission/models"
	"online-admission/services/placement"
)

const rosterSheet = "Students"

var rosterHeaders = []interface{}{
	"Admission No", placement.HeaderIndexNumber, placement.HeaderFirstName, placement.HeaderLastName,
	placement.HeaderGender, placement.HeaderProgram, placement.HeaderStatus, placement.HeaderAggregate,
	placement.HeaderJHSAttended, placement.HeaderDateOfBirth, placement.HeaderSMSContact,
	"Year", "Completed", "Paid", "Email", "Guardian", "Guardian Contact", "House",
}

// ExportStudents writes the students as an xlsx roster. Program ids are
// shown by name when known.
func ExportStudents(students []models.Student, programs []models.Program) (*bytes.Buffer, error) {
	names := placement.ProgramNamesOf(programs)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return nil, err
	}
	sw, err := f.NewStreamWriter(rosterSheet)
	if err != nil {
		return nil, fmt.Errorf("create roster stream: %w", err)
	}
	if err := sw.SetRow("A1", rosterHeaders); err != nil {
		return nil, err
	}

	for i, s := range students {
		program := s.Program()
		if name, ok := names[program]; ok {
			program = name
		}
		var aggregate interface{}
		if s.Aggregate != nil {
			aggregate = *s.Aggregate
		}
		row := []interface{}{
			s.AdmissionNumber, s.IndexNumber, s.FirstName, s.LastName,
			s.Gender, program, s.Status, aggregate,
			s.JHSAttended, s.DateOfBirth, s.SMSContact,
			s.Year, yesNo(s.Completed), yesNo(s.HasPaid), s.Email, s.GuardianName, s.GuardianContact, s.House,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("write roster row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
