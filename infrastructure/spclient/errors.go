package spclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"spconnect/infrastructure/session"
)

// Sentinel errors for responses that SharePoint answers with a bare status.
var (
	ErrNotFound  = errors.New("not found. Please check tenant, site type or site name")
	ErrForbidden = errors.New("forbidden. Please check your account credentials")
)

// APIError is an OData error payload returned by the REST API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sharepoint error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("sharepoint error %d: %s", e.StatusCode, e.Message)
}

// Is maps 404/403 API errors onto the sentinels so errors.Is works either way.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

// BatchPartError describes one failed change inside a $batch response.
type BatchPartError struct {
	Index      int
	StatusCode int
	Code       string
	Message    string
}

// BatchError is returned when a $batch request succeeded but some parts failed.
type BatchError struct {
	Total  int
	Failed []BatchPartError
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d batch items failed", len(e.Failed), e.Total)
	for i, f := range e.Failed {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(e.Failed)-i)
			break
		}
		fmt.Fprintf(&b, "; item %d: %d", f.Index, f.StatusCode)
		if f.Code != "" {
			fmt.Fprintf(&b, " %s", f.Code)
		}
		if f.Message != "" {
			fmt.Fprintf(&b, " %s", f.Message)
		}
	}
	return b.String()
}

// odataError is the verbose error envelope {"error":{"code":..,"message":{"value":..}}}
type odataError struct {
	Error struct {
		Code    string `json:"code"`
		Message struct {
			Value string `json:"value"`
		} `json:"message"`
	} `json:"error"`
}

// parseODataError extracts code and message, ok is false when body is not an OData error.
func parseODataError(body []byte) (code, message string, ok bool) {
	var e odataError
	if err := json.Unmarshal(body, &e); err != nil {
		return "", "", false
	}
	if e.Error.Code == "" && e.Error.Message.Value == "" {
		return "", "", false
	}
	return e.Error.Code, e.Error.Message.Value, true
}

// assertResponseOK turns error statuses into ErrNotFound, ErrForbidden or *APIError.
func assertResponseOK(resp *session.Response) error {
	if resp.OK() {
		return nil
	}
	code, message, ok := parseODataError(resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound && !ok:
		return ErrNotFound
	case resp.StatusCode == http.StatusForbidden && !ok:
		return ErrForbidden
	case ok:
		return &APIError{StatusCode: resp.StatusCode, Code: code, Message: message}
	}
	msg := strings.TrimSpace(string(resp.Body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
