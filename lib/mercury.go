package lib

import (
	"bytes"
	"cardhub/config"
	"cardhub/helper"
	"context"
	"encoding/json"
	"net/http"
)

type MercuryRedeemRequest struct {
	KeyID string `json:"key_id"`
}

// MercuryAdapter redeems keys with a single JSON call.
type MercuryAdapter struct {
	cfg    config.IssuerConfig
	client *http.Client
}

func NewMercuryAdapter(cfg config.IssuerConfig, client *http.Client) *MercuryAdapter {
	return &MercuryAdapter{cfg: cfg, client: client}
}

func (m *MercuryAdapter) Kind() IssuerKind {
	return KindMercury
}

func (m *MercuryAdapter) Activate(ctx context.Context, code string) RawResponse {
	keyID := helper.BeautifyCode(code)

	requestBody, err := json.Marshal(MercuryRedeemRequest{KeyID: keyID})
	if err != nil {
		return Failure("activation failed: %v", err)
	}

	ctx, cancel := withTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(requestBody))
	if err != nil {
		return Failure("activation failed: %v", err)
	}
	for key, value := range m.cfg.Headers {
		req.Header.Set(key, value)
	}

	body, status, err := send(m.client, helper.MercuryLogger, req, map[string]interface{}{
		"key_id": keyID,
	})
	if err != nil {
		return TransportFailure("activation failed: network error: %v", err)
	}

	raw, err := decodeObject(body)
	if err != nil {
		return TransportFailure("activation failed: unreadable issuer response (HTTP %d): %s", status, truncate(body, 100))
	}
	return raw
}
