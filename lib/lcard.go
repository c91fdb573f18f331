package lib

import (
	"cardhub/config"
	"cardhub/helper"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	lcardPANPattern  = regexp.MustCompile(`(?:卡号|Card(?:\s*Number)?)[:：]\s*(\d{12,19})`)
	lcardCVVPattern  = regexp.MustCompile(`(?i:CVV|CVC)[:：]\s*(\d{3,4})`)
	lcardDatePattern = regexp.MustCompile(`(?:日期|Exp(?:iry)?)[:：]\s*(\d{1,2})/(\d{2})`)
)

// Status texts the issuer uses for a key nobody has redeemed yet.
var lcardUnusedStatuses = []string{"未使用", "未激活", "unused", "not used"}

type lcardState int

const (
	lcardFailed lcardState = iota
	lcardUnused
	lcardActive
)

type lcardResult struct {
	state lcardState
	raw   RawResponse
}

// LCardAdapter talks to the action-based PHP endpoint. Activation first
// queries the key and only redeems it when the issuer reports it unused.
type LCardAdapter struct {
	cfg          config.IssuerConfig
	client       *http.Client
	serverOffset *time.Location
}

func NewLCardAdapter(cfg config.IssuerConfig, client *http.Client) *LCardAdapter {
	offset := -4
	if raw, ok := cfg.Options["server_offset"]; ok {
		if parsed, err := strconv.Atoi(raw); err == nil {
			offset = parsed
		}
	}
	return &LCardAdapter{
		cfg:          cfg,
		client:       client,
		serverOffset: time.FixedZone("lcard", offset*60*60),
	}
}

func (a *LCardAdapter) Kind() IssuerKind {
	return KindLCard
}

func (a *LCardAdapter) Activate(ctx context.Context, code string) RawResponse {
	realKey := lcardKey(code)

	queried := a.call(ctx, a.action("query_action", "query"), realKey)
	if queried.state != lcardUnused {
		return queried.raw
	}

	helper.Info("[LCard] key %s unused, redeeming", realKey)
	redeemed := a.call(ctx, a.action("redeem_action", "activate"), realKey)
	return redeemed.raw
}

// Query reads the key state without redeeming it.
func (a *LCardAdapter) Query(ctx context.Context, code string) RawResponse {
	return a.call(ctx, a.action("query_action", "query"), lcardKey(code)).raw
}

func lcardKey(code string) string {
	return strings.TrimSpace(helper.StripSuffixes(helper.BeautifyCode(code), helper.LCardSuffixes))
}

func (a *LCardAdapter) action(option, fallback string) string {
	if value := a.cfg.Options[option]; value != "" {
		return value
	}
	return fallback
}

func (a *LCardAdapter) call(ctx context.Context, action, realKey string) lcardResult {
	params := url.Values{}
	params.Set("action", action)
	params.Set("card_keys", realKey)

	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.URL+"?"+params.Encode(), nil)
	if err != nil {
		return lcardResult{raw: Failure("activation failed: %v", err)}
	}
	for key, value := range a.cfg.Headers {
		req.Header.Set(key, value)
	}

	body, _, err := send(a.client, helper.LCardLogger, req, map[string]interface{}{
		"action":    action,
		"card_keys": realKey,
	})
	if err != nil {
		return lcardResult{raw: TransportFailure("Network Error: %v", err)}
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return lcardResult{raw: TransportFailure("Invalid JSON response: %s", truncate(body, 100))}
	}

	target := lcardTarget(data, realKey)
	if target == nil {
		raw := Failure("No matching card data found")
		raw["raw"] = data
		return lcardResult{raw: raw}
	}

	return a.interpret(target, realKey)
}

// lcardTarget picks the result object for realKey out of the several shapes
// the endpoint returns.
func lcardTarget(data interface{}, realKey string) map[string]interface{} {
	switch v := data.(type) {
	case []interface{}:
		return pickLCardItem(v, realKey)
	case map[string]interface{}:
		if results, ok := v["results"].([]interface{}); ok && len(results) > 0 {
			return pickLCardItem(results, realKey)
		}
		if success, _ := v["success"].(bool); success {
			if items, ok := v["data"].([]interface{}); ok && len(items) > 0 {
				return pickLCardItem(items, realKey)
			}
		}
		if _, ok := v["activation_code"]; ok {
			return v
		}
		if _, ok := v["status_text"]; ok {
			return v
		}
	}
	return nil
}

func pickLCardItem(items []interface{}, realKey string) map[string]interface{} {
	var first map[string]interface{}
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if first == nil {
			first = obj
		}
		if key, _ := obj["card_key"].(string); key == realKey {
			return obj
		}
	}
	return first
}

func (a *LCardAdapter) interpret(target map[string]interface{}, realKey string) lcardResult {
	activationCode, _ := target["activation_code"].(string)
	statusText, _ := target["status_text"].(string)

	card := map[string]interface{}{}
	if m := lcardPANPattern.FindStringSubmatch(activationCode); m != nil {
		card["pan"] = m[1]
	}
	if m := lcardCVVPattern.FindStringSubmatch(activationCode); m != nil {
		card["cvv"] = m[1]
	}
	if m := lcardDatePattern.FindStringSubmatch(activationCode); m != nil {
		card["exp_month"] = padMonth(m[1])
		card["exp_year"] = "20" + m[2]
	}

	if _, ok := card["pan"]; !ok {
		if isLCardUnused(statusText) {
			raw := Failure("%s", firstNonEmpty(statusText, "卡密未使用"))
			raw["lcard_status_text"] = statusText
			return lcardResult{state: lcardUnused, raw: raw}
		}
		raw := Failure("%s", firstNonEmpty(statusText, "card has no activation data"))
		raw["lcard_status_text"] = statusText
		return lcardResult{state: lcardFailed, raw: raw}
	}

	cardKey, _ := target["card_key"].(string)
	card["card_key"] = firstNonEmpty(cardKey, realKey)

	validity := a.cfg.DefaultValidityHours
	if rawCreated, _ := target["created_at"].(string); rawCreated != "" {
		created, err := helper.ParseTimestampIn(strings.Split(rawCreated, ".")[0], a.serverOffset)
		if err != nil {
			// unparseable values pass through untouched
			card["created_time"] = strings.Replace(rawCreated, " ", "T", 1)
		} else {
			card["created_time"] = helper.FormatReference(created)
			if validity > 0 {
				card["expire_time"] = helper.FormatReference(created.Add(time.Duration(validity * float64(time.Hour))))
			}
		}
	}

	return lcardResult{
		state: lcardActive,
		raw: RawResponse{
			"success":           true,
			"card":              card,
			"validity_hours":    validity,
			"lcard_status_text": statusText,
		},
	}
}

func isLCardUnused(statusText string) bool {
	lower := strings.ToLower(strings.TrimSpace(statusText))
	for _, marker := range lcardUnusedStatuses {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
