package model

// RawActivationRecord is one issuer response kept for audit in MongoDB.
type RawActivationRecord struct {
	Code       string                 `bson:"code" json:"code"`
	Issuer     string                 `bson:"issuer" json:"issuer"`
	Succeeded  bool                   `bson:"succeeded" json:"succeeded"`
	Response   map[string]interface{} `bson:"response" json:"response"`
	RecordedAt int64                  `bson:"recorded_at" json:"recorded_at"`
}
