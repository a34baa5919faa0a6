// Package logging provides logging utilities for alarmscope.
package logging

import "strings"

// SensitiveFields contains field names that should be masked in logs.
// Alarm exports carry credential-adjacent columns and the server config
// carries keys for every backing service.
var SensitiveFields = map[string]bool{
	"password":          true,
	"passwd":            true,
	"secret":            true,
	"token":             true,
	"api_key":           true,
	"apikey":            true,
	"x-api-key":         true,
	"authorization":     true,
	"bearer":            true,
	"access_key_id":     true,
	"secret_access_key": true,
	"useremail":         true,
	"email":             true,
}

// MaskedValue is the string used to replace sensitive values.
const MaskedValue = "[REDACTED]"

// MaskSensitiveValue masks a value if the field name is sensitive.
func MaskSensitiveValue(fieldName, value string) string {
	if value == "" {
		return value
	}
	if IsSensitiveField(fieldName) {
		return MaskedValue
	}
	return value
}

// IsSensitiveField checks if a field name is sensitive, by exact match
// or by containing a sensitive keyword.
func IsSensitiveField(fieldName string) bool {
	lowerField := strings.ToLower(fieldName)

	if SensitiveFields[lowerField] {
		return true
	}

	for sensitive := range SensitiveFields {
		if strings.Contains(lowerField, sensitive) {
			return true
		}
	}

	return false
}

// MaskAPIKey masks an API key, showing only the first and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return MaskedValue
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// MaskEmail partially masks an email address, keeping the domain so log
// lines stay correlatable per tenant.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	atIdx := strings.Index(email, "@")
	if atIdx <= 0 {
		return MaskedValue
	}

	local := email[:atIdx]
	domain := email[atIdx:]

	if len(local) <= 2 {
		return MaskedValue + domain
	}

	return local[:1] + "***" + local[len(local)-1:] + domain
}
