// Package res writes the coordinator's JSON response envelopes. Every
// handler answers through Json or Error so clients always get a JSON
// body with a Content-Type, error or not.
package res

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error envelope the mobile client decodes on any
// non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
}

func Json(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, msg string, statusCode int) {
	Json(w, ErrorBody{Error: msg}, statusCode)
}
