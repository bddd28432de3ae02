package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"validation", func(w http.ResponseWriter) { ValidationError(w, "m") }, http.StatusBadRequest, CodeValidationError},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "m") }, http.StatusNotFound, CodeNotFound},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "m") }, http.StatusUnauthorized, CodeUnauthorized},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "m") }, http.StatusForbidden, CodeForbidden},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "m") }, http.StatusConflict, CodeConflict},
		{"upstream", func(w http.ResponseWriter) { UpstreamUnavailable(w, "m") }, http.StatusBadGateway, CodeUpstreamUnavailable},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "m") }, http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.status {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body errorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("декодирование: %v", err)
			}
			if body.Error.Code != tt.code || body.Error.Message != "m" {
				t.Errorf("тело = %+v", body)
			}
		})
	}
}
