package helper

import (
	"cardhub/config"
	"fmt"
	"time"
)

// IssuerHelpers provides logging helpers for issuer adapters
type IssuerHelpers struct {
	Issuer string
}

func NewIssuerHelpers(issuer string) *IssuerHelpers {
	return &IssuerHelpers{
		Issuer: issuer,
	}
}

// LogAPICall logs one outbound issuer call
func (ih *IssuerHelpers) LogAPICall(endpoint, method string, duration time.Duration, statusCode int, requestData, responseData map[string]interface{}) {
	data := map[string]interface{}{}

	if requestData != nil {
		data["request"] = requestData
	}

	if responseData != nil {
		data["response"] = responseData
	}

	config.LogIssuerAPI(ih.Issuer, endpoint, method, duration, statusCode, data)
}

// LogActivationError logs a failed activation attempt
func (ih *IssuerHelpers) LogActivationError(code, errorMsg string, data map[string]interface{}) {
	entry := config.LogEntry{
		Code:   code,
		Status: "failed",
		Error:  errorMsg,
		Data:   data,
	}
	config.LogError(ih.Issuer, "Activation failed", entry)
}

// LogActivationSuccess logs a completed activation; the PAN is masked
func (ih *IssuerHelpers) LogActivationSuccess(code, pan string) {
	entry := config.LogEntry{
		Code:   code,
		Status: "success",
		Data:   map[string]interface{}{"pan": MaskPAN(pan)},
	}
	config.LogInfo(ih.Issuer, "Activation completed", entry)
}

// LogRetry logs retry attempts for failed activations
func (ih *IssuerHelpers) LogRetry(batchID, code string, attempt int, maxAttempts int, lastError string) {
	entry := config.LogEntry{
		Code:    code,
		BatchID: batchID,
		Error:   lastError,
		Data: map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
		},
	}

	level := "WARN"
	message := fmt.Sprintf("Retry attempt %d/%d", attempt, maxAttempts)

	if attempt >= maxAttempts {
		level = "ERROR"
		message = "Max retry attempts reached"
	}

	config.LogManager.Log(ih.Issuer, level, message, entry)
}

var (
	MercuryLogger = NewIssuerHelpers(config.ISSUER_MERCURY)
	HolyLogger    = NewIssuerHelpers(config.ISSUER_HOLY)
	LCardLogger   = NewIssuerHelpers(config.ISSUER_LCARD)
	VocardLogger  = NewIssuerHelpers(config.ISSUER_VOCARD)
	BatchLogger   = NewIssuerHelpers(config.LOG_BATCH)
)
