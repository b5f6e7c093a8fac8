package geo

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"sync"

	"github.com/davidleathers/trustguard-backend/internal/domain/event"
)

// StaticResolver resolves IP addresses against an in-memory table of CIDR
// ranges. It covers deployments where a full geolocation provider is not
// wired; unmatched addresses resolve to nil, which downstream detection
// treats as "cannot compare".
type StaticResolver struct {
	mu      sync.RWMutex
	entries []entry
}

type entry struct {
	network *net.IPNet
	geo     event.GeoLocation
}

// rangeRecord is the on-disk form of one table row.
type rangeRecord struct {
	CIDR    string  `json:"cidr"`
	Country string  `json:"country"`
	Region  *string `json:"region,omitempty"`
	City    *string `json:"city,omitempty"`
}

// NewStaticResolver creates an empty resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{}
}

// NewStaticResolverFromFile loads a JSON array of CIDR records from path.
// An empty path yields an empty resolver rather than an error.
func NewStaticResolverFromFile(path string) (*StaticResolver, error) {
	r := NewStaticResolver()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []rangeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, rec := range records {
		country := rec.Country
		geo := event.GeoLocation{Country: &country, Region: rec.Region, City: rec.City}
		if err := r.AddRange(rec.CIDR, geo); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// AddRange registers a CIDR range with its location. Later additions win on
// overlap because lookup scans most recent first.
func (r *StaticResolver) AddRange(cidr string, geo event.GeoLocation) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{network: network, geo: geo})
	return nil
}

// Resolve returns the location for the first matching range, or nil when no
// range matches or the address does not parse.
func (r *StaticResolver) Resolve(ctx context.Context, ip string) (*event.GeoLocation, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].network.Contains(parsed) {
			geo := r.entries[i].geo
			return &geo, nil
		}
	}
	return nil, nil
}
