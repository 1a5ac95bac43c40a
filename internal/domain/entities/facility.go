package entities

// FacilityType is the inferred category of a medical facility
type FacilityType string

const (
	FacilityTypeHospital FacilityType = "hospital"
	FacilityTypeClinic   FacilityType = "clinic"
	FacilityTypePharmacy FacilityType = "pharmacy"
)

// AddressNotAvailable is used when a facility carries no address components.
const AddressNotAvailable = "Address not available"

// Coordinates represents geographical coordinates
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Facility is a nearby medical facility derived from a point-of-interest query.
// Rating, IsOpen and Services are reserved and currently always null.
type Facility struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        FacilityType `json:"type"`
	Address     string       `json:"address"`
	Phone       *string      `json:"phone"`
	Website     *string      `json:"website"`
	Rating      *float64     `json:"rating"`
	Distance    float64      `json:"distance"`
	IsOpen      *bool        `json:"isOpen"`
	Hours       *string      `json:"hours"`
	Services    []string     `json:"services"`
	Coordinates Coordinates  `json:"coordinates"`
}
