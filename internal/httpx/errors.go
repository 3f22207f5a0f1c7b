package httpx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-success response from a vendor API.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

func newAPIError(status int, body []byte) *APIError {
	text := strings.TrimSpace(string(body))
	if len(text) > 1024 {
		text = text[:1024]
	}
	return &APIError{
		StatusCode: status,
		Message:    errorMessage(body),
		Body:       text,
	}
}

// errorEnvelope covers the error shapes used by Graph, Google, X, LinkedIn
// and OAuth token endpoints.
type errorEnvelope struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Detail           string          `json:"detail"`
	Title            string          `json:"title"`
	Message          string          `json:"message"`
	Errors           []struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"errors"`
}

func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}

	if len(env.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var code string
		if err := json.Unmarshal(env.Error, &code); err == nil && code != "" {
			if env.ErrorDescription != "" {
				return code + ": " + env.ErrorDescription
			}
			return code
		}
	}

	switch {
	case env.Detail != "":
		return env.Detail
	case len(env.Errors) > 0 && env.Errors[0].Message != "":
		return env.Errors[0].Message
	case len(env.Errors) > 0 && env.Errors[0].Detail != "":
		return env.Errors[0].Detail
	case env.Message != "":
		return env.Message
	case env.Title != "":
		return env.Title
	}
	return ""
}
