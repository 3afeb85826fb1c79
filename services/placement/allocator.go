package placement

import "online-admission/models"

// Allocate numbers drafts contiguously from currentMax+1 in input order and
// stamps the admission year. currentMax is 0 for a school with no students.
func Allocate(drafts []models.Student, currentMax int, year string) []models.Student {
	out := make([]models.Student, len(drafts))
	next := currentMax + 1
	for i, d := range drafts {
		d.AdmissionNumber = next
		d.Year = year
		out[i] = d
		next++
	}
	return out
}
