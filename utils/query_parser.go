package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"online-admission/models"
)

const maxPageSize = 500

// ParseStudentFilter extracts list filters from the query string.
func ParseStudentFilter(r *http.Request, schoolID string) (models.StudentFilter, error) {
	q := r.URL.Query()
	f := models.StudentFilter{
		SchoolID:  schoolID,
		ProgramID: strings.TrimSpace(q.Get("program_id")),
		Status:    NormalizeStatus(q.Get("status")),
		Search:    strings.TrimSpace(q.Get("q")),
	}
	if f.Status != "" && !IsKnownStatus(f.Status) {
		return f, fmt.Errorf("invalid status %q, use day or boarding", f.Status)
	}

	var err error
	if f.Completed, err = parseBoolParam(q.Get("completed"), "completed"); err != nil {
		return f, err
	}
	if f.HasPaid, err = parseBoolParam(q.Get("has_paid"), "has_paid"); err != nil {
		return f, err
	}
	if f.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = parseIntParam(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return f, nil
}

func parseBoolParam(s, name string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s, use true or false", name)
	}
	return &b, nil
}

func parseIntParam(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
