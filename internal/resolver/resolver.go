// Package resolver turns an IP address into the minimal location response
// served to clients.
package resolver

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/TomasB/georesolve/internal/data"
)

// Locale selects the display name used for countries and continents.
const Locale = "en"

var (
	// ErrInvalidAddress is returned when the input is not an IP address.
	ErrInvalidAddress = errors.New("invalid IP address")

	// ErrDataset is returned when the dataset query fails.
	ErrDataset = errors.New("dataset query failed")

	// ErrIncompleteRecord is returned when the dataset has an entry for the
	// address but it lacks a field required by Location.
	ErrIncompleteRecord = errors.New("incomplete location record")
)

// Resolve outcomes reported to an Observer.
const (
	OutcomeFound            = "found"
	OutcomeNotFound         = "not_found"
	OutcomeInvalidAddress   = "invalid_address"
	OutcomeDatasetError     = "dataset_error"
	OutcomeIncompleteRecord = "incomplete_record"
)

// Location is the response for a resolved address. The zero value means the
// address is unknown and marshals to an empty JSON object.
type Location struct {
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Continent   string `json:"continent,omitempty"`
}

// Found reports whether the location is populated.
func (l Location) Found() bool {
	return l != Location{}
}

// Observer is notified about every resolve call.
type Observer interface {
	ObserveResolve(outcome string, duration time.Duration)
}

// Service resolves IP addresses against a shared read-only dataset.
type Service struct {
	dataset  data.Dataset
	observer Observer
}

// NewService creates a resolver over the given dataset. observer may be nil.
func NewService(dataset data.Dataset, observer Observer) *Service {
	return &Service{dataset: dataset, observer: observer}
}

// Resolve parses ipText and looks it up. An address with no dataset entry
// yields the zero Location and a nil error.
func (s *Service) Resolve(ipText string) (Location, error) {
	start := time.Now()

	loc, err := s.resolve(ipText)
	if s.observer != nil {
		s.observer.ObserveResolve(outcome(loc, err), time.Since(start))
	}
	return loc, err
}

func (s *Service) resolve(ipText string) (Location, error) {
	ip := net.ParseIP(ipText)
	if ip == nil {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidAddress, ipText)
	}

	record, err := s.dataset.Lookup(ip)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrDataset, err)
	}
	if record == nil {
		return Location{}, nil
	}

	return project(record)
}

// project requires every field of Location to be present; a partial record
// is an error rather than a partial response.
func project(record *data.LocationRecord) (Location, error) {
	if record.Continent == nil {
		return Location{}, missing("continent")
	}
	if record.Country == nil {
		return Location{}, missing("country")
	}

	country, ok := record.Country.Names[Locale]
	if !ok || country == "" {
		return Location{}, missing("country name")
	}
	if record.Country.ISOCode == "" {
		return Location{}, missing("country code")
	}
	continent, ok := record.Continent.Names[Locale]
	if !ok || continent == "" {
		return Location{}, missing("continent name")
	}

	return Location{
		Country:     country,
		CountryCode: record.Country.ISOCode,
		Continent:   continent,
	}, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrIncompleteRecord, field)
}

func outcome(loc Location, err error) string {
	switch {
	case errors.Is(err, ErrInvalidAddress):
		return OutcomeInvalidAddress
	case errors.Is(err, ErrDataset):
		return OutcomeDatasetError
	case errors.Is(err, ErrIncompleteRecord):
		return OutcomeIncompleteRecord
	case loc.Found():
		return OutcomeFound
	default:
		return OutcomeNotFound
	}
}
