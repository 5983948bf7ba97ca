package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/infractl/infractl/pkg/config"
)

// RedactedValue replaces every masked header or field value.
const RedactedValue = "***REDACTED***"

// MaskingMiddleware scrubs credentials and other sensitive values out of
// request data before it reaches the request log. Header names match
// exactly; body field names match on substring, so "password" also covers
// "admin_password".
type MaskingMiddleware struct {
	enabled          bool
	sensitiveHeaders []string
	sensitiveFields  []string
}

// NewMaskingMiddleware builds a masker from the logging configuration.
func NewMaskingMiddleware(cfg *config.LoggingConfig) *MaskingMiddleware {
	return &MaskingMiddleware{
		enabled:          cfg.Masking.Enabled,
		sensitiveHeaders: cfg.GetSensitiveHeadersList(),
		sensitiveFields:  cfg.GetSensitiveFieldsList(),
	}
}

// MaskHeaders returns a copy of headers with sensitive values redacted.
// The original header map is never modified.
func (m *MaskingMiddleware) MaskHeaders(headers http.Header) http.Header {
	if !m.enabled {
		return headers
	}

	masked := make(http.Header, len(headers))
	for name, values := range headers {
		if m.isSensitiveHeader(name) {
			redacted := make([]string, len(values))
			for i := range redacted {
				redacted[i] = RedactedValue
			}
			masked[name] = redacted
			continue
		}
		masked[name] = values
	}
	return masked
}

// MaskBody redacts sensitive fields at any nesting depth of a JSON body.
// Non-JSON bodies pass through unchanged; they carry no field names to
// match against.
func (m *MaskingMiddleware) MaskBody(body []byte) []byte {
	if !m.enabled || len(body) == 0 {
		return body
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return body
	}

	m.redact(doc)

	masked, err := json.Marshal(doc)
	if err != nil {
		return body
	}
	return masked
}

func (m *MaskingMiddleware) redact(doc map[string]interface{}) {
	for field, value := range doc {
		if m.isSensitiveField(field) {
			doc[field] = RedactedValue
			continue
		}
		switch nested := value.(type) {
		case map[string]interface{}:
			m.redact(nested)
		case []interface{}:
			for _, element := range nested {
				if object, ok := element.(map[string]interface{}); ok {
					m.redact(object)
				}
			}
		}
	}
}

func (m *MaskingMiddleware) isSensitiveHeader(name string) bool {
	for _, sensitive := range m.sensitiveHeaders {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}

func (m *MaskingMiddleware) isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, sensitive := range m.sensitiveFields {
		if strings.Contains(lower, strings.ToLower(sensitive)) {
			return true
		}
	}
	return false
}
