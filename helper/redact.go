package helper

import (
	"regexp"
	"strings"
)

var (
	secretKeys     = map[string]bool{"cvv": true, "cvc": true, "card_cvc": true, "security_code": true}
	panKeys        = map[string]bool{"pan": true, "card_number": true, "cardNumber": true, "number": true}
	secretTextKeys = map[string]bool{"secret": true, "activation_code": true}

	panRunPattern = regexp.MustCompile(`\d{12,19}`)
	cvvPattern    = regexp.MustCompile(`(?i)(cvv|cvc)(\s*[:：]?\s*)\d{3,4}`)
)

// Redact returns a copy of an issuer payload with card secrets masked.
// Security codes and free-text card secrets are replaced, card numbers keep
// their first and last four digits.
func Redact(value map[string]interface{}) map[string]interface{} {
	if value == nil {
		return nil
	}
	out := make(map[string]interface{}, len(value))
	for key, v := range value {
		out[key] = redactField(key, v)
	}
	return out
}

func redactField(key string, value interface{}) interface{} {
	switch {
	case secretKeys[key] || secretTextKeys[key]:
		if value == nil {
			return nil
		}
		return "***"
	case panKeys[key]:
		if s, ok := value.(string); ok {
			return MaskPAN(s)
		}
	}
	return RedactValue(value)
}

// RedactValue masks card data anywhere inside a decoded JSON value.
func RedactValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return Redact(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = RedactValue(item)
		}
		return out
	case string:
		return RedactText(v)
	default:
		return v
	}
}

// RedactText masks card numbers and labelled security codes in free text.
func RedactText(text string) string {
	text = panRunPattern.ReplaceAllStringFunc(text, MaskPAN)
	return cvvPattern.ReplaceAllString(text, "${1}${2}***")
}

// IsCardNumber reports whether pan looks like a plain card number.
func IsCardNumber(pan string) bool {
	return len(pan) >= 12 && len(pan) <= 19 && isNumeric(strings.TrimSpace(pan))
}
