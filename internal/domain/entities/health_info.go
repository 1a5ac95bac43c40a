package entities

import "encoding/json"

// HealthInfoSource tells whether health data came from the cache or the origin API
type HealthInfoSource string

const (
	HealthInfoSourceCache  HealthInfoSource = "cache"
	HealthInfoSourceOrigin HealthInfoSource = "CDC_API"
)

// HealthInfo is the result of a public health data lookup
type HealthInfo struct {
	Source HealthInfoSource `json:"source"`
	Data   json.RawMessage  `json:"data"`
}
