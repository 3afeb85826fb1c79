package http

import (
	"net/http"

	"online-admission/http/handlers"
	"online-admission/http/middleware"
)

// SetupRoutes registers every route on mux.
func SetupRoutes(mux *http.ServeMux, h *handlers.Handler) {
	mux.HandleFunc("GET /health", h.Health)

	// Admin console
	mux.HandleFunc("POST /admin/schools", h.CreateSchool)
	mux.HandleFunc("GET /admin/school", h.GetSchool)
	mux.HandleFunc("PUT /admin/admission", h.SaveAdmission)
	mux.HandleFunc("GET /admin/admission", h.GetAdmission)
	mux.HandleFunc("POST /admin/programs", h.CreateProgram)
	mux.HandleFunc("GET /admin/programs", h.ListPrograms)
	mux.HandleFunc("POST /admin/placement/upload", h.UploadPlacement)
	mux.HandleFunc("GET /admin/students", h.ListStudents)
	mux.HandleFunc("GET /admin/students/export", h.ExportStudents)
	mux.HandleFunc("GET /admin/logs", h.ListLogs)
	mux.HandleFunc("POST /admin/documents/{kind}", h.UploadDocument)

	// Student portal
	mux.HandleFunc("GET /student/placement", h.GetPlacement)
	mux.HandleFunc("POST /student/payment/initiate", h.InitiatePayment)
	mux.HandleFunc("POST /student/payment/verify", h.VerifyPayment)
	mux.HandleFunc("POST /student/onboarding", h.CompleteOnboarding)
	mux.HandleFunc("GET /student/admission-letter", h.AdmissionLetter)
	mux.HandleFunc("GET /student/documents/{kind}", h.Document)

	mux.HandleFunc("POST /webhooks/razorpay", h.RazorpayWebhook)

	// DLQ Management APIs
	mux.HandleFunc("GET /api/dlq/messages", h.GetDLQMessages)
	mux.HandleFunc("POST /api/dlq/messages/{id}/retry", h.RetryDLQMessage)
	mux.HandleFunc("POST /api/dlq/messages/{id}/resolve", h.ResolveDLQMessage)
	mux.HandleFunc("GET /api/dlq/stats", h.GetDLQStats)
}

// NewHandler builds the routed handler wrapped in CORS and request logging.
func NewHandler(h *handlers.Handler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	SetupRoutes(mux, h)
	return middleware.RequestLogger(middleware.CORS(allowedOrigins)(mux))
}
