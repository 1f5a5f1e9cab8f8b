package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		title   string
		message string
	}{
		{"string error", 400, `{"error":"plain text"}`, defaultErrorTitle, "plain text"},
		{"details win", 400, `{"error":{"message":"Validation failed","details":"Title is required"}}`, "Validation failed", "Title is required"},
		{"details without message", 400, `{"error":{"details":"only details"}}`, defaultErrorTitle, "only details"},
		{"message only", 409, `{"error":{"message":"Conflict here"}}`, defaultErrorTitle, "Conflict here"},
		{"empty error object uses table", http.StatusForbidden, `{"error":{}}`, "You are not authorized!", "You are not allowed to perform this operation."},
		{"no body 404", http.StatusNotFound, ``, "Resource not found!", "The resource requested could not found on the server."},
		{"html 500", http.StatusInternalServerError, `<html>`, "Internal Server Error", "An internal error occurred during your request!"},
		{"unknown status", http.StatusTeapot, ``, defaultErrorTitle, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.title, e.Title)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestError_Display(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "T\nM", (&Error{Title: "T", Message: "M"}).Display())
	assert.Equal(t, "T", (&Error{Title: "T"}).Display())
	assert.Contains(t, (&Error{Status: 500, Title: "T", Message: "M"}).Error(), "500")
}
