package placement

import (
	"sort"

	"online-admission/models"
	"online-admission/utils"
)

// ProgramNames maps a school's program ids to their display names.
type ProgramNames map[string]string

// ProgramNamesOf indexes a program listing.
func ProgramNamesOf(programs []models.Program) ProgramNames {
	names := make(ProgramNames, len(programs))
	for _, p := range programs {
		names[p.ProgramID] = p.Name
	}
	return names
}

// Mapper resolves program names to ids. Build one per batch.
type Mapper struct {
	byName map[string]string
}

// NewMapper indexes programs by exact name. When two programs share a name
// the lowest id wins.
func NewMapper(programs ProgramNames) *Mapper {
	ids := make([]string, 0, len(programs))
	for id := range programs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	byName := make(map[string]string, len(ids))
	for _, id := range ids {
		name := programs[id]
		if _, taken := byName[name]; !taken {
			byName[name] = id
		}
	}
	return &Mapper{byName: byName}
}

// Map converts a raw row into a draft student. An unknown program leaves
// ProgramRef nil.
func (m *Mapper) Map(row Row) models.Student {
	s := models.Student{
		IndexNumber: row.IndexNumber,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		Gender:      row.Gender,
		Status:      utils.NormalizeStatus(row.Status),
		Aggregate:   utils.ParseAggregate(row.Aggregate),
		JHSAttended: row.JHSAttended,
		DateOfBirth: row.DateOfBirth,
		SMSContact:  row.SMSContact,
	}
	if id, ok := m.byName[row.Program]; ok {
		s.ProgramRef = utils.StringPtr(id)
	}
	return s
}

// MapRow maps a single row against programs.
func MapRow(row Row, programs ProgramNames) models.Student {
	return NewMapper(programs).Map(row)
}
