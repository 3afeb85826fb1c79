package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "online-admission/errors"
	resp "online-admission/http/response"
	"online-admission/logger"
	"online-admission/models"
	"online-admission/utils"
)

func indexNumber(r *http.Request) (string, error) {
	idx := strings.TrimSpace(r.URL.Query().Get("index_number"))
	if idx == "" {
		return "", apperrors.E(apperrors.Invalid, "index_number is required")
	}
	return idx, nil
}

// GetPlacement lets a student check their placement.
// GET /student/placement?index_number=
func (h *Handler) GetPlacement(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	idx, err := indexNumber(r)
	if err != nil {
		respondError(w, err)
		return
	}
	p, err := h.students.Lookup(r.Context(), schoolID, idx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", p)
}

// CompleteOnboarding stores the student's profile once the fee is paid.
// POST /student/onboarding
func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var profile models.StudentProfile
	if err := utils.DecodeJSONRequest(r, &profile); err != nil {
		respondError(w, err)
		return
	}
	profile.SchoolID = schoolID

	student, err := h.students.CompleteOnboarding(r.Context(), profile)
	if err != nil {
		if fields := utils.FieldErrors(err); fields != nil {
			resp.FromErrorWithData(w, err, map[string]interface{}{"fields": fields})
			return
		}
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Onboarding completed", student)
}

// GET /student/admission-letter?index_number=
func (h *Handler) AdmissionLetter(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	idx, err := indexNumber(r)
	if err != nil {
		respondError(w, err)
		return
	}
	letter, err := h.students.AdmissionLetter(r.Context(), schoolID, idx)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="admission-letter-%s.pdf"`, idx))
	w.Header().Set("Content-Length", strconv.Itoa(len(letter)))
	w.WriteHeader(http.StatusOK)
	w.Write(letter)
}

// GET /student/documents/{kind}?index_number=
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	idx, err := indexNumber(r)
	if err != nil {
		respondError(w, err)
		return
	}
	kind := r.PathValue("kind")
	doc, err := h.students.Document(r.Context(), schoolID, idx, kind)
	if err != nil {
		respondError(w, err)
		return
	}
	defer doc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, kind))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, doc); err != nil {
		logger.Warn("Error streaming %s to %s: %v", kind, idx, err)
	}
}
