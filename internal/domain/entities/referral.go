package entities

// Urgency levels
const (
	UrgencyNormal    = "normal"
	UrgencyEmergency = "emergency"
)

// EmergencyNote is attached to referral results requested with emergency urgency.
const EmergencyNote = "For emergencies call 911"

// ReferralPreferences narrows a referral search.
// MaxDistance is in kilometres and replaces the default search radius when positive.
type ReferralPreferences struct {
	Urgency     string  `json:"urgency"`
	Insurance   string  `json:"insurance"`
	Specialty   string  `json:"specialty"`
	MaxDistance float64 `json:"maxDistance" validate:"gte=0,lte=100"`
}

// Location is a request coordinate. Both fields must be sent.
type Location struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// ReferralRequest asks for facilities near a location
type ReferralRequest struct {
	Location    *Location            `json:"location" validate:"required"`
	Diagnosis   string               `json:"diagnosis" validate:"required"`
	Preferences *ReferralPreferences `json:"preferences" validate:"omitempty"`
}

// ReferralResult groups facilities by priority. Every bucket is always present;
// only Recommended is populated today.
type ReferralResult struct {
	Urgent        []Facility `json:"urgent"`
	Recommended   []Facility `json:"recommended"`
	Alternatives  []Facility `json:"alternatives"`
	Telemedicine  []Facility `json:"telemedicine"`
	EmergencyNote *string    `json:"emergency_note"`
}

// NewReferralResult returns a result with all buckets initialised to empty slices.
func NewReferralResult() *ReferralResult {
	return &ReferralResult{
		Urgent:       []Facility{},
		Recommended:  []Facility{},
		Alternatives: []Facility{},
		Telemedicine: []Facility{},
	}
}
