package lib

import (
	"cardhub/config"
	"cardhub/helper"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var (
	vocardPANPattern  = regexp.MustCompile(`\b(\d{16})\b`)
	vocardDatePattern = regexp.MustCompile(`(\d{1,2})\s*/\s*(\d{4})`)
	vocardCVCPattern  = regexp.MustCompile(`\b(\d{3,4})\b`)
)

// VocardSecret is the card data embedded in a trade's secret text,
// e.g. "z015 4462220002632161 01 / 2029 504".
type VocardSecret struct {
	PAN      string
	CVC      string
	ExpMonth string
	ExpYear  string
}

// vocardProfile selects the shop item and billing address for a coupon.
type vocardProfile struct {
	itemID  string
	address config.Address
}

// VocardAdapter trades an LR- coupon for card details.
type VocardAdapter struct {
	cfg    config.IssuerConfig
	client *http.Client
}

func NewVocardAdapter(cfg config.IssuerConfig, client *http.Client) *VocardAdapter {
	return &VocardAdapter{cfg: cfg, client: client}
}

func (v *VocardAdapter) Kind() IssuerKind {
	return KindVocard
}

func (v *VocardAdapter) profile(code string) (string, vocardProfile) {
	if strings.HasSuffix(code, helper.VocardUSA) {
		return strings.TrimSuffix(code, helper.VocardUSA), vocardProfile{
			itemID:  v.cfg.Options["usa_item_id"],
			address: config.FairburnAddress,
		}
	}
	return code, vocardProfile{
		itemID:  v.cfg.Options["item_id"],
		address: v.cfg.DefaultAddress,
	}
}

func (v *VocardAdapter) Activate(ctx context.Context, code string) RawResponse {
	coupon, profile := v.profile(helper.BeautifyCode(code))

	form := url.Values{}
	form.Set("contact", "")
	form.Set("password", "")
	form.Set("coupon", coupon)
	form.Set("captcha", "")
	form.Set("num", firstNonEmpty(v.cfg.Options["num"], "1"))
	form.Set("item_id", profile.itemID)
	form.Set("pay_id", firstNonEmpty(v.cfg.Options["pay_id"], "1"))
	form.Set("device", firstNonEmpty(v.cfg.Options["device"], "0"))

	ctx, cancel := withTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return Failure("activation failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range v.cfg.Headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	body, _, err := send(v.client, helper.VocardLogger, req, map[string]interface{}{
		"coupon":  coupon,
		"item_id": profile.itemID,
	})
	if err != nil {
		return TransportFailure("request error: %v", err)
	}

	resp, err := decodeObject(body)
	if err != nil {
		raw := TransportFailure("unreadable issuer response: %s", truncate(body, 100))
		raw["raw_response"] = string(body)
		return raw
	}

	if respCode := fmt.Sprintf("%v", resp["code"]); respCode != "200" {
		msg, _ := resp["msg"].(string)
		raw := Failure("%s", firstNonEmpty(msg, "unknown error"))
		raw["code"] = resp["code"]
		return raw
	}

	data, _ := resp["data"].(map[string]interface{})
	secretText, _ := data["secret"].(string)
	secret, ok := ParseVocardSecret(secretText)
	if !ok {
		raw := Failure("cannot parse card secret: %s", secretText)
		raw["raw_data"] = data
		return raw
	}

	return RawResponse{
		"success": true,
		"card": map[string]interface{}{
			"pan":           secret.PAN,
			"cvv":           secret.CVC,
			"exp_month":     secret.ExpMonth,
			"exp_year":      secret.ExpYear,
			"legal_address": profile.address.AsMap(),
			"trade_no":      data["tradeNo"],
			"stock":         data["stock"],
		},
	}
}

// ParseVocardSecret extracts PAN, MM/YYYY and CVC. The CVC is the last 3 or 4
// digit token left once PAN and date are removed.
func ParseVocardSecret(secret string) (VocardSecret, bool) {
	if secret == "" {
		return VocardSecret{}, false
	}

	m := vocardPANPattern.FindStringSubmatch(secret)
	if m == nil {
		return VocardSecret{}, false
	}
	parsed := VocardSecret{PAN: m[1], ExpMonth: "00", ExpYear: "0000"}

	cleaned := strings.Replace(secret, parsed.PAN, " ", 1)
	if d := vocardDatePattern.FindStringSubmatch(cleaned); d != nil {
		parsed.ExpMonth = padMonth(d[1])
		parsed.ExpYear = d[2]
		cleaned = strings.Replace(cleaned, d[0], " ", 1)
	}

	if candidates := vocardCVCPattern.FindAllStringSubmatch(cleaned, -1); len(candidates) > 0 {
		parsed.CVC = candidates[len(candidates)-1][1]
	}

	return parsed, true
}

func padMonth(month string) string {
	if len(month) == 1 {
		return "0" + month
	}
	return month
}
