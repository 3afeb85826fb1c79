package utils

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "online-admission/errors"
)

// DecodeJSONRequest decodes JSON from HTTP request body into the provided interface.
// Usage: var data MyType; if err := DecodeJSONRequest(r, &data); err != nil { ... }
func DecodeJSONRequest(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.E(apperrors.Invalid, "invalid request body", err)
	}
	return nil
}

// SchoolID returns the school scope of the request from the X-School-ID
// header or the school_id query parameter.
func SchoolID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderSchoolID))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("school_id"))
	}
	if id == "" {
		return "", apperrors.E(apperrors.Invalid, "school id is required")
	}
	return id, nil
}

// Actor returns the identity of the administrator making the request.
func Actor(r *http.Request) (string, error) {
	actor := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if actor == "" {
		return "", apperrors.E(apperrors.Unauthorized, "actor identity is required")
	}
	return actor, nil
}
