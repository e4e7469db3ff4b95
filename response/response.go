package response

import (
	"encoding/json"
	"net/http"
)

// WriteResponse encodes result as JSON with status 200
func WriteResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	writeJSON(w, http.StatusOK, result)
}

// WriteError encodes the error envelope with its status code
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	writeJSON(w, e.StatusCode, e)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
