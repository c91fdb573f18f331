package lib

import (
	"bytes"
	"cardhub/config"
	"cardhub/helper"
	"context"
	"encoding/json"
	"net/http"
)

// holyProfiles pins the billing address for suffixes that imply one.
var holyProfiles = map[string]config.Address{
	"-4866":  config.FairburnAddress,
	"-44622": config.LondonAddress,
}

type HolyActivateRequest struct {
	LicenseKey string `json:"licenseKey"`
}

// HolyAdapter activates license keys carrying one of the holy suffixes.
type HolyAdapter struct {
	cfg    config.IssuerConfig
	client *http.Client
}

func NewHolyAdapter(cfg config.IssuerConfig, client *http.Client) *HolyAdapter {
	return &HolyAdapter{cfg: cfg, client: client}
}

func (h *HolyAdapter) Kind() IssuerKind {
	return KindHoly
}

func (h *HolyAdapter) Activate(ctx context.Context, code string) RawResponse {
	licenseKey := helper.BeautifyCode(code)
	suffix := helper.MatchedSuffix(licenseKey, helper.HolySuffixes)
	realKey := helper.StripSuffixes(licenseKey, helper.HolySuffixes)

	requestBody, err := json.Marshal(HolyActivateRequest{LicenseKey: realKey})
	if err != nil {
		return Failure("activation failed: %v", err)
	}

	ctx, cancel := withTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(requestBody))
	if err != nil {
		return Failure("activation failed: %v", err)
	}
	for key, value := range h.cfg.Headers {
		req.Header.Set(key, value)
	}

	body, status, err := send(h.client, helper.HolyLogger, req, map[string]interface{}{
		"license_key": realKey,
	})
	if err != nil {
		return TransportFailure("activation failed: network error: %v", err)
	}

	raw, err := decodeObject(body)
	if err != nil {
		return TransportFailure("activation failed: unreadable issuer response (HTTP %d): %s", status, truncate(body, 100))
	}

	if address, ok := holyProfiles[suffix]; ok {
		raw["legal_address"] = address.AsMap()
	}
	return raw
}
