package entities

import "strings"

// ErrorDetail is the guest's last-error record. A failed export call stores
// one; error_last hands it to the host as JSON and clears it.
//
// Type is one of "header_parse", "alloc", "handle", "misuse", "panic" or
// "internal" and selects the typed error the host rebuilds.
type ErrorDetail struct {
	Type string `json:"type"`

	// Code names the export operation that failed.
	Code string `json:"code,omitempty"`

	Message string `json:"message"`

	// Details carries type-specific values, such as the log index of a
	// header_parse failure.
	Details map[string]any `json:"details,omitempty"`

	// Stack is only set for recovered panics.
	Stack []byte `json:"stack,omitempty"`
}

// Error renders "type: message [code]". The internal type is left out.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	if e.Type != "" && e.Type != "internal" {
		sb.WriteString(e.Type)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Code)
		sb.WriteByte(']')
	}
	return sb.String()
}

// NewErrorDetail returns a record of the given type.
func NewErrorDetail(typ, message string) *ErrorDetail {
	return &ErrorDetail{Type: typ, Message: message}
}

// WithCode sets the failing operation.
func (e *ErrorDetail) WithCode(op string) *ErrorDetail {
	e.Code = op
	return e
}

// WithDetail adds one detail value.
func (e *ErrorDetail) WithDetail(key string, value any) *ErrorDetail {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// DetailInt reads an integer detail. Records decoded from JSON hold numbers
// as float64, which is accepted too.
func (e *ErrorDetail) DetailInt(key string) (int, bool) {
	switch v := e.Details[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
