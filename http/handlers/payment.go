package handlers

import (
	"io"
	"net/http"

	resp "online-admission/http/response"
	"online-admission/utils"
)

// InitiatePayment creates a Razorpay order for the placement fee.
// POST /student/payment/initiate {"index_number": "..."}
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	schoolID, err := utils.SchoolID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req struct {
		IndexNumber string `json:"index_number" validate:"required"`
	}
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, err)
		return
	}

	order, err := h.payments.InitiatePayment(r.Context(), schoolID, req.IndexNumber)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, "Payment initiated", order)
}

// VerifyPayment checks the checkout signature and unlocks self-service.
// POST /student/payment/verify
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID   string `json:"razorpay_order_id" validate:"required"`
		PaymentID string `json:"razorpay_payment_id" validate:"required"`
		Signature string `json:"razorpay_signature" validate:"required"`
	}
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, err)
		return
	}

	payment, err := h.payments.VerifyPayment(r.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Payment verified", payment)
}

// RazorpayWebhook applies payment events pushed by Razorpay.
// POST /webhooks/razorpay
func (h *Handler) RazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		resp.ErrorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	result, err := h.payments.HandleWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Webhook "+result.Status, result)
}
