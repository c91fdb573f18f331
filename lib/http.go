package lib

import (
	"bytes"
	"cardhub/helper"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBytes = 1 << 20

// send performs req and logs the exchange to the issuer log.
func send(client *http.Client, logger *helper.IssuerHelpers, req *http.Request, requestLog map[string]interface{}) ([]byte, int, error) {
	start := time.Now()
	endpoint := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	resp, err := client.Do(req)
	if err != nil {
		logger.LogAPICall(endpoint, req.Method, time.Since(start), 0, requestLog, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	logger.LogAPICall(endpoint, req.Method, time.Since(start), resp.StatusCode, requestLog, map[string]interface{}{
		"body": loggableBody(body),
	})
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading response: %w", err)
	}
	helper.Debug("[%s] %s %s -> %d (%d bytes, %s)", logger.Issuer, req.Method, endpoint, resp.StatusCode, len(body), time.Since(start).Round(time.Millisecond))

	return body, resp.StatusCode, nil
}

// loggableBody is the response body with card data masked. JSON bodies are
// logged decoded.
func loggableBody(body []byte) interface{} {
	var decoded interface{}
	if err := json.Unmarshal(bytes.TrimSpace(body), &decoded); err == nil {
		return helper.RedactValue(decoded)
	}
	return helper.RedactText(truncate(body, 2048))
}

// decodeObject parses a JSON object body.
func decodeObject(body []byte) (RawResponse, error) {
	var raw RawResponse
	if err := json.Unmarshal(bytes.TrimSpace(body), &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("empty JSON body")
	}
	return raw, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n])
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
