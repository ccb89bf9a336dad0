/*
Package resp provides helper functions for constructing and sending HTTP JSON responses.

Successful responses carry the endpoint's own body; error responses share one
envelope with a business code and a client-safe message.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"roomtoken/internal/pkg/errs"
	"roomtoken/internal/pkg/logx"
)

// ErrorResponse is the JSON body sent for every failed request.
type ErrorResponse struct {
	// Code is the business error code (see errs package).
	Code int `json:"code"`

	// Message is the client-friendly error description.
	Message string `json:"message"`
}

// RespondJSON sets the Content-Type and writes payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Ctx(r.Context()).Error().
			Err(err).
			Int("http_status", httpStatus).
			Msg("Error encoding JSON response")

		http.Error(w, `{"code":5000,"message":"Something went wrong. Please try again."}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends data with HTTP 200 OK.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, data)
}

// RespondError sends the error envelope for customErr.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	res := ErrorResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	}
	RespondJSON(w, r, customErr.Status, res)
}
