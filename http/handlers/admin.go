package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	apperrors "online-admission/errors"
	"online-admission/models"
	"online-admission/utils"
)

// CreateSchool registers a school.
// POST /admin/schools
func (h *Handler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var school models.School
	if err := utils.DecodeJSONRequest(r, &school); err != nil {
		respondError(w, err)
		return
	}
	if err := h.schools.CreateSchool(r.Context(), &school); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, "School created", school)
}

// GET /admin/school
func (h *Handler) GetSchool(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	school, err := h.schools.GetSchool(r.Context(), schoolID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", school)
}

// SaveAdmission sets the admission year, fee and intake status.
// PUT /admin/admission
func (h *Handler) SaveAdmission(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var cfg models.AdmissionConfig
	if err := utils.DecodeJSONRequest(r, &cfg); err != nil {
		respondError(w, err)
		return
	}
	cfg.SchoolID = schoolID
	if err := h.schools.SaveAdmission(r.Context(), &cfg); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Admission saved", cfg)
}

// GET /admin/admission
func (h *Handler) GetAdmission(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	cfg, err := h.schools.GetAdmission(r.Context(), schoolID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", cfg)
}

// POST /admin/programs
func (h *Handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var program models.Program
	if err := utils.DecodeJSONRequest(r, &program); err != nil {
		respondError(w, err)
		return
	}
	program.SchoolID = schoolID
	if err := h.schools.CreateProgram(r.Context(), &program); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, "Program created", program)
}

// GET /admin/programs
func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	programs, err := h.schools.ListPrograms(r.Context(), schoolID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", map[string]interface{}{
		"count":    len(programs),
		"programs": programs,
	})
}

// ListStudents lists the roster with optional filters.
// GET /admin/students?program_id=&status=&completed=&has_paid=&q=&limit=&offset=
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.studentFilter(w, r)
	if !ok {
		return
	}
	students, err := h.schools.ListStudents(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", map[string]interface{}{
		"count":    len(students),
		"students": students,
	})
}

// ExportStudents downloads the filtered roster as xlsx.
// GET /admin/students/export
func (h *Handler) ExportStudents(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.studentFilter(w, r)
	if !ok {
		return
	}
	buf, err := h.schools.ExportStudents(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="students-%s.xlsx"`, filter.SchoolID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *Handler) studentFilter(w http.ResponseWriter, r *http.Request) (models.StudentFilter, bool) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return models.StudentFilter{}, false
	}
	filter, err := utils.ParseStudentFilter(r, schoolID)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Invalid, err.Error()))
		return models.StudentFilter{}, false
	}
	return filter, true
}

// GET /admin/logs?limit=
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			respondError(w, apperrors.E(apperrors.Invalid, "invalid limit"))
			return
		}
	}
	logs, err := h.schools.ListLogs(r.Context(), schoolID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", map[string]interface{}{
		"count": len(logs),
		"logs":  logs,
	})
}

// UploadDocument stores the prospectus or undertaking PDF.
// POST /admin/documents/{kind} (multipart field "file")
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if _, err := utils.Actor(r); err != nil {
		respondError(w, err)
		return
	}

	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	cfg, err := h.schools.UploadDocument(r.Context(), schoolID, r.PathValue("kind"), file, contentType)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Document uploaded", cfg)
}
