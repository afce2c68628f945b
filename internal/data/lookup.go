package data

import (
	"errors"
	"net"
	"time"
)

// ErrLookup is returned when the dataset query itself fails. An address that
// has no entry in the dataset is not an error.
var ErrLookup = errors.New("dataset lookup failed")

// ContinentRecord is the continent group of a location record.
type ContinentRecord struct {
	Code      string            `maxminddb:"code"`
	GeoNameID uint              `maxminddb:"geoname_id"`
	Names     map[string]string `maxminddb:"names"`
}

// CountryRecord is the country group of a location record.
type CountryRecord struct {
	ISOCode           string            `maxminddb:"iso_code"`
	GeoNameID         uint              `maxminddb:"geoname_id"`
	IsInEuropeanUnion bool              `maxminddb:"is_in_european_union"`
	Names             map[string]string `maxminddb:"names"`
}

// LocationRecord is the raw hierarchical record stored for an address.
// A nil group means the dataset has no such group for the entry.
type LocationRecord struct {
	Continent *ContinentRecord `maxminddb:"continent"`
	Country   *CountryRecord   `maxminddb:"country"`
}

// Metadata describes the loaded database.
type Metadata struct {
	DatabaseType string            `json:"database_type"`
	Description  map[string]string `json:"description,omitempty"`
	IPVersion    uint              `json:"ip_version"`
	Languages    []string          `json:"languages,omitempty"`
	BuildTime    time.Time         `json:"build_time"`
}

// Dataset defines the interface for IP-to-location lookups.
type Dataset interface {
	// Lookup returns the record stored for ip, or nil if the address has no
	// entry. Errors are reserved for failed queries.
	Lookup(ip net.IP) (*LocationRecord, error)

	// Metadata describes the database currently in use.
	Metadata() Metadata

	// Close releases any resources held by the dataset.
	Close() error
}
