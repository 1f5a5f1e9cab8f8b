package api

import (
	"encoding/json"
	"net/http"
)

const defaultErrorTitle = "An error has occurred!"

// statusMessages is used when the body carries no usable error.
var statusMessages = map[int][2]string{
	http.StatusUnauthorized:        {"You are not authenticated!", "You should be authenticated (sign in) in order to perform this operation."},
	http.StatusForbidden:           {"You are not authorized!", "You are not allowed to perform this operation."},
	http.StatusNotFound:            {"Resource not found!", "The resource requested could not found on the server."},
	http.StatusInternalServerError: {"Internal Server Error", "An internal error occurred during your request!"},
}

type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// decodeError builds an *Error from a failed response body, following the
// backend's precedence: a plain string, then details, then message, then the
// status table.
func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status, Title: defaultErrorTitle}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		var text string
		if json.Unmarshal(envelope.Error, &text) == nil {
			e.Message = text
			return e
		}

		var fields map[string]json.RawMessage
		var remote remoteError
		if json.Unmarshal(envelope.Error, &fields) == nil && json.Unmarshal(envelope.Error, &remote) == nil {
			if _, ok := fields["details"]; ok {
				e.Message = remote.Details
				if remote.Message != "" {
					e.Title = remote.Message
				}
				return e
			}
			if _, ok := fields["message"]; ok {
				e.Message = remote.Message
				return e
			}
		}
	}

	if msg, ok := statusMessages[status]; ok {
		e.Title, e.Message = msg[0], msg[1]
	}
	return e
}
