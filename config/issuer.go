package config

import (
	"fmt"
	"strings"
	"time"
)

// Address is a structured billing address as issuers report it.
type Address struct {
	Address1   string `json:"address1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Line joins the non-empty parts with ", ".
func (a Address) Line() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Address1, a.City, a.Region, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (a Address) IsZero() bool {
	return a.Line() == ""
}

// AsMap renders the address the way issuers embed it in JSON payloads.
func (a Address) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"address1":    a.Address1,
		"city":        a.City,
		"region":      a.Region,
		"postal_code": a.PostalCode,
		"country":     a.Country,
	}
}

var (
	DefaultUSAddress = Address{
		Address1:   "41 Glenn Rd C23",
		City:       "East Hartford",
		Region:     "CT",
		PostalCode: "06118",
		Country:    "US",
	}
	FairburnAddress = Address{
		Address1:   "8280 Mayfern Drive",
		City:       "Fairburn",
		Region:     "GA",
		PostalCode: "30213",
		Country:    "US",
	}
	LondonAddress = Address{
		Address1:   "Aurora Head Spa",
		City:       "London",
		Region:     "England",
		PostalCode: "NW7 1RP",
		Country:    "UK",
	}
	BoltonAddress = Address{
		Address1:   "Unit 3, Enterprise House 260 Chorley New Road",
		City:       "Horwich, Bolton",
		Region:     "England",
		PostalCode: "BL6 5NY",
		Country:    "UK",
	}
)

// IssuerConfig describes how to reach one issuing backend.
type IssuerConfig struct {
	Name                 string
	URL                  string
	Method               string
	Headers              map[string]string
	Timeout              time.Duration
	DefaultAddress       Address
	DefaultValidityHours float64
	Options              map[string]string
}

// GetIssuerConfig retrieves the configuration for an issuer, with env overrides applied.
func GetIssuerConfig(issuer string) (IssuerConfig, error) {
	timeout := ConfigDuration("ISSUER_TIMEOUT_SECONDS", time.Second, 30*time.Second)

	configs := map[string]IssuerConfig{
		ISSUER_MERCURY: {
			Name:   ISSUER_MERCURY,
			URL:    Config("MERCURY_API_URL", "https://mercury.wxie.de/api/keys/redeem"),
			Method: "POST",
			Headers: map[string]string{
				"accept":          "*/*",
				"accept-language": "zh-CN,zh;q=0.9,en;q=0.8",
				"cache-control":   "no-cache",
				"content-type":    "application/json",
				"origin":          "https://mercury.wxie.de",
				"pragma":          "no-cache",
				"referer":         "https://mercury.wxie.de/redeem",
				"sec-fetch-dest":  "empty",
				"sec-fetch-mode":  "cors",
				"sec-fetch-site":  "same-origin",
				"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36",
			},
			Timeout:              timeout,
			DefaultAddress:       DefaultUSAddress,
			DefaultValidityHours: ConfigFloat("MERCURY_VALIDITY_HOURS", 0),
		},
		ISSUER_HOLY: {
			Name:   ISSUER_HOLY,
			URL:    Config("HOLY_API_URL", "http://holymastercard.com/api/license/activate"),
			Method: "POST",
			Headers: map[string]string{
				"Content-Type": "application/json",
				"User-Agent":   "MisaCard/1.0",
			},
			Timeout:              timeout,
			DefaultAddress:       DefaultUSAddress,
			DefaultValidityHours: ConfigFloat("HOLY_VALIDITY_HOURS", 0),
		},
		ISSUER_LCARD: {
			Name:                 ISSUER_LCARD,
			URL:                  Config("LCARD_API_URL", "http://a.card4399.top/api.php"),
			Method:               "GET",
			Timeout:              timeout,
			DefaultAddress:       DefaultUSAddress,
			DefaultValidityHours: ConfigFloat("LCARD_VALIDITY_HOURS", 24),
			Options: map[string]string{
				"query_action":  "query",
				"redeem_action": Config("LCARD_REDEEM_ACTION", "activate"),
				"server_offset": "-4",
			},
		},
		ISSUER_VOCARD: {
			Name:   ISSUER_VOCARD,
			URL:    Config("VOCARD_API_URL", "https://vocard.store/user/api/order/trade"),
			Method: "POST",
			Headers: map[string]string{
				"Cookie":     Config("VOCARD_COOKIE", ""),
				"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			Timeout:              timeout,
			DefaultAddress:       BoltonAddress,
			DefaultValidityHours: ConfigFloat("VOCARD_VALIDITY_HOURS", 0),
			Options: map[string]string{
				"item_id":     Config("VOCARD_ITEM_ID", "59"),
				"usa_item_id": Config("VOCARD_USA_ITEM_ID", "62"),
				"pay_id":      "1",
				"num":         "1",
				"device":      "0",
			},
		},
	}

	cfg, ok := configs[issuer]
	if !ok {
		return IssuerConfig{}, fmt.Errorf("issuer %s not configured", issuer)
	}
	return cfg, nil
}

// MustIssuerConfig is GetIssuerConfig for the fixed issuer set known at compile time.
func MustIssuerConfig(issuer string) IssuerConfig {
	cfg, err := GetIssuerConfig(issuer)
	if err != nil {
		panic(err)
	}
	return cfg
}
