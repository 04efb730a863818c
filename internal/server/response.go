package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/me/gokite/pkg/model"
)

// statusFor maps an API error code to its HTTP status. Configuration,
// resolution and binding failures come from the request.
func statusFor(code model.ErrorCode) int {
	switch code {
	case model.CodeNotFound:
		return http.StatusNotFound
	case model.CodeBadRequest, model.CodeConfiguration, model.CodeResolution, model.CodeBinding:
		return http.StatusBadRequest
	case model.CodeContext:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondOK(w http.ResponseWriter, reqID string, data any) {
	writeEnvelope(w, http.StatusOK, model.Response{RequestID: reqID, Data: data})
}

func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	writeEnvelope(w, http.StatusOK, model.Response{RequestID: reqID, Data: data, Pagination: pg})
}

// respondError writes apiErr with an explicit status.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	writeEnvelope(w, status, model.Response{RequestID: reqID, Error: apiErr})
}

// respondErr writes err with the status its kind maps to.
func respondErr(w http.ResponseWriter, reqID string, err error) {
	apiErr := model.APIErrorFrom(err)
	respondError(w, reqID, statusFor(apiErr.Code), apiErr)
}

// writeEnvelope stamps resp and writes it as JSON. The status field follows
// the presence of an error.
func writeEnvelope(w http.ResponseWriter, status int, resp model.Response) {
	resp.Timestamp = time.Now().UTC()
	resp.Status = "ok"
	if resp.Error != nil {
		resp.Status = "error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
