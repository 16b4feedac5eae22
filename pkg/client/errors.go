package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// APIError is the single shape every non-2xx API response is folded into.
// FieldErrors holds per-field validation messages; Message holds whatever
// the server said that is not tied to one field.
type APIError struct {
	StatusCode  int
	FieldErrors map[string]string
	Message     string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	if len(e.FieldErrors) > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.fieldSummary())
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Field returns the message for one field, or "".
func (e *APIError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.FieldErrors[name]
}

// General returns Message, or a summary of the field errors when there is none.
func (e *APIError) General() string {
	if e.Message != "" {
		return e.Message
	}
	return e.fieldSummary()
}

func (e *APIError) fieldSummary() string {
	keys := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.FieldErrors[k])
	}
	return strings.Join(parts, "; ")
}

// IsStatus returns true if err (or any wrapped error) is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == code
	}
	return false
}

// IsUnauthorized reports a 401 or 403 from the API.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}

// AsAPIError unwraps err to an *APIError, or returns nil.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// message keys the API uses for a general, non-field error.
var generalKeys = []string{"error", "detail", "message", "non_field_errors"}

// newAPIError normalizes a raw error body into an APIError.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, FieldErrors: map[string]string{}}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		e.Message = http.StatusText(status)
		return e
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		e.Message = truncate(trimmed, 200)
		return e
	}

	switch v := raw.(type) {
	case map[string]any:
		for _, k := range generalKeys {
			if msg := flattenMessage(v[k]); msg != "" {
				e.Message = msg
				break
			}
		}
		for k, val := range v {
			if isGeneralKey(k) {
				continue
			}
			collectFields(e.FieldErrors, k, val)
		}
	default:
		e.Message = flattenMessage(v)
	}

	if e.Message == "" && len(e.FieldErrors) == 0 {
		e.Message = http.StatusText(status)
	}
	return e
}

func isGeneralKey(k string) bool {
	for _, g := range generalKeys {
		if k == g {
			return true
		}
	}
	return false
}

// collectFields walks nested objects, joining keys with dots.
func collectFields(out map[string]string, prefix string, val any) {
	if obj, ok := val.(map[string]any); ok {
		for k, inner := range obj {
			collectFields(out, prefix+"."+k, inner)
		}
		return
	}
	if msg := flattenMessage(val); msg != "" {
		out[prefix] = msg
	}
}

// flattenMessage turns a string, number or list of them into one line.
func flattenMessage(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := flattenMessage(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		for _, k := range generalKeys {
			if s := flattenMessage(v[k]); s != "" {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i] + "..."
		}
		runes++
	}
	return s
}
