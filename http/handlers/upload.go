package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	apperrors "online-admission/errors"
	resp "online-admission/http/response"
	"online-admission/logger"
	"online-admission/services"
	"online-admission/services/placement"
	"online-admission/utils"
)

// formFile reads the multipart "file" field, enforcing the upload limit.
func (h *Handler) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			resp.ErrorResponse(w, http.StatusRequestEntityTooLarge, "file is too large")
			return nil, nil, false
		}
		respondError(w, apperrors.E(apperrors.Invalid, "expected a multipart form with a file field", err))
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, apperrors.E(apperrors.Invalid, "invalid file", err))
		return nil, nil, false
	}
	return file, header, true
}

// UploadPlacement imports a placement list (xlsx, xls or csv).
// POST /admin/placement/upload (multipart field "file")
func (h *Handler) UploadPlacement(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	actor, err := utils.Actor(r)
	if err != nil {
		respondError(w, err)
		return
	}

	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	logger.Info("Processing placement upload %s for %s", header.Filename, schoolID)

	res, err := h.schools.ImportPlacement(r.Context(), placement.Request{
		SchoolID:    schoolID,
		Actor:       actor,
		Client:      services.ClientFromRequest(r),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		resp.FromErrorWithData(w, err, res)
		return
	}
	respondJSON(w, http.StatusOK, "Placement list imported", res)
}
