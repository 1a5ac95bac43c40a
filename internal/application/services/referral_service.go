package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/diagnosai/backend/internal/domain/entities"
	"github.com/diagnosai/backend/internal/domain/providers"
	"github.com/diagnosai/backend/internal/infrastructure/observability"
	apperrors "github.com/diagnosai/backend/pkg/errors"
	"github.com/diagnosai/backend/pkg/geo"
)

const (
	defaultReferralRadiusKm = 10.0
	minReferralRadiusMeters = 1
)

// addressTags are joined in this order to build a display address.
var addressTags = []string{
	"addr:street",
	"addr:housenumber",
	"addr:city",
	"addr:state",
	"addr:postcode",
}

// ReferralService finds nearby facilities for a diagnosis
type ReferralService struct {
	locator         providers.FacilityLocator
	defaultRadiusKm float64
	metrics         *observability.Metrics
}

// NewReferralService creates a new referral service
func NewReferralService(locator providers.FacilityLocator, defaultRadiusKm float64, metrics *observability.Metrics) *ReferralService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = defaultReferralRadiusKm
	}
	return &ReferralService{
		locator:         locator,
		defaultRadiusKm: defaultRadiusKm,
		metrics:         metrics,
	}
}

// FindReferrals queries the locator around the request location and groups the results.
func (s *ReferralService) FindReferrals(ctx context.Context, req *entities.ReferralRequest) (*entities.ReferralResult, error) {
	if err := validateLocation(req); err != nil {
		return nil, err
	}
	if s.locator == nil {
		return nil, apperrors.NewInternalError("facility locator is not configured", fmt.Errorf("nil locator"))
	}

	ctx, span := observability.StartSpan(ctx, "ReferralService.FindReferrals")
	defer span.End()

	radiusKm := s.defaultRadiusKm
	if req.Preferences != nil && req.Preferences.MaxDistance > 0 {
		radiusKm = req.Preferences.MaxDistance
	}

	center := providers.LatLng{Lat: *req.Location.Lat, Lon: *req.Location.Lng}
	start := time.Now()
	elements, err := s.locator.FindNearby(ctx, center, RadiusMeters(radiusKm))
	observability.RecordUpstreamCall(ctx, s.metrics, "overpass", time.Since(start), err)
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).
			Float64("radius_km", radiusKm).
			Msg("facility lookup failed")
		return nil, apperrors.NewExternalError("failed to fetch nearby facilities", err)
	}

	result := entities.NewReferralResult()
	result.Recommended = NormalizeFacilities(center, elements)

	if req.Preferences != nil && req.Preferences.Urgency == entities.UrgencyEmergency {
		note := entities.EmergencyNote
		result.EmergencyNote = &note
	}

	return result, nil
}

// RadiusMeters converts a search radius in kilometres to whole metres, never below one metre.
func RadiusMeters(radiusKm float64) int {
	meters := int(math.Round(radiusKm * 1000))
	if meters < minReferralRadiusMeters {
		return minReferralRadiusMeters
	}
	return meters
}

func validateLocation(req *entities.ReferralRequest) error {
	if req == nil || req.Location == nil {
		return apperrors.NewValidationError("location is required", apperrors.FieldError{Field: "location", Rule: "required"})
	}
	var missing []apperrors.FieldError
	if req.Location.Lat == nil {
		missing = append(missing, apperrors.FieldError{Field: "location.lat", Rule: "required"})
	}
	if req.Location.Lng == nil {
		missing = append(missing, apperrors.FieldError{Field: "location.lng", Rule: "required"})
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("location is incomplete", missing...)
	}
	return nil
}

// NormalizeFacilities converts raw map elements into facilities, preserving input order.
// Elements without resolvable coordinates are skipped.
func NormalizeFacilities(center providers.LatLng, elements []providers.MapElement) []entities.Facility {
	facilities := make([]entities.Facility, 0, len(elements))
	origin := geo.Point{Lat: center.Lat, Lng: center.Lon}

	for _, element := range elements {
		lat, lon, ok := element.Position()
		if !ok {
			continue
		}

		facilityType, defaultName := ClassifyFacility(element.Tags)
		name, ok := element.Tags["name"]
		if !ok {
			name = defaultName
		}

		facilities = append(facilities, entities.Facility{
			ID:          strconv.FormatInt(element.ID, 10),
			Name:        name,
			Type:        facilityType,
			Address:     BuildAddress(element.Tags),
			Phone:       optionalTag(element.Tags, "phone"),
			Website:     optionalTag(element.Tags, "website"),
			Hours:       optionalTag(element.Tags, "opening_hours"),
			Distance:    geo.Round(geo.DistanceKm(origin, geo.Point{Lat: lat, Lng: lon}), 2),
			Coordinates: entities.Coordinates{Lat: lat, Lng: lon},
		})
	}

	return facilities
}

// ClassifyFacility infers the facility type and fallback name from map tags.
// The first matching rule wins.
func ClassifyFacility(tags map[string]string) (entities.FacilityType, string) {
	amenity := tags["amenity"]
	healthcare := tags["healthcare"]

	switch {
	case amenity == "hospital":
		return entities.FacilityTypeHospital, "Unknown Hospital"
	case amenity == "clinic" || healthcare == "clinic":
		return entities.FacilityTypeClinic, "Unknown Clinic"
	case amenity == "doctors":
		return entities.FacilityTypeClinic, "Unknown Medical Practice"
	case amenity == "pharmacy":
		return entities.FacilityTypePharmacy, "Unknown Pharmacy"
	default:
		return entities.FacilityTypeClinic, "Unknown Medical Facility"
	}
}

// BuildAddress joins the non-empty address components with ", ".
func BuildAddress(tags map[string]string) string {
	parts := make([]string, 0, len(addressTags))
	for _, key := range addressTags {
		if v := tags[key]; v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return entities.AddressNotAvailable
	}
	return strings.Join(parts, ", ")
}

func optionalTag(tags map[string]string, key string) *string {
	v, ok := tags[key]
	if !ok {
		return nil
	}
	return &v
}
