package data

import (
	"fmt"
	"net"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// MmdbReader implements Dataset using a memory-mapped MaxMind DB file.
type MmdbReader struct {
	db *maxminddb.Reader
}

// NewMmdbReader opens the MMDB file at the given path and returns a reader.
func NewMmdbReader(path string) (*MmdbReader, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MMDB file: %w", err)
	}
	return &MmdbReader{db: db}, nil
}

// Lookup returns the location record for the given IP address.
func (r *MmdbReader) Lookup(ip net.IP) (*LocationRecord, error) {
	var record LocationRecord

	_, ok, err := r.db.LookupNetwork(ip, &record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Metadata returns the metadata section of the database.
func (r *MmdbReader) Metadata() Metadata {
	md := r.db.Metadata
	return Metadata{
		DatabaseType: md.DatabaseType,
		Description:  md.Description,
		IPVersion:    md.IPVersion,
		Languages:    md.Languages,
		BuildTime:    time.Unix(int64(md.BuildEpoch), 0).UTC(),
	}
}

// Close releases the MMDB reader resources.
func (r *MmdbReader) Close() error {
	return r.db.Close()
}
