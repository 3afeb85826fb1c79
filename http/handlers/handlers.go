// Package handlers exposes the admin console and student portal over HTTP.
package handlers

import (
	"net/http"

	resp "online-admission/http/response"
	"online-admission/services"
)

// Handler holds the services the routes call into.
type Handler struct {
	schools  *services.SchoolService
	students *services.StudentService
	payments *services.PaymentService
	// maxUpload caps request bodies carrying files, in bytes.
	maxUpload int64
}

func New(schools *services.SchoolService, students *services.StudentService, payments *services.PaymentService, maxUploadMB int64) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Handler{
		schools:   schools,
		students:  students,
		payments:  payments,
		maxUpload: maxUploadMB << 20,
	}
}

func respondJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	resp.SuccessResponse(w, status, message, data)
}

func respondError(w http.ResponseWriter, err error) {
	resp.FromError(w, err)
}
