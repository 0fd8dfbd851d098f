// Package zone models DNS zones, their records and the changes that move a
// zone from one state to another.
package zone

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// ErrDuplicateRecord indicates a record with the same name and type already exists.
var ErrDuplicateRecord = errors.New("duplicate record")

// ValidationError lists the reasons a record was rejected.
type ValidationError struct {
	FQDN    string
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record %s: %s", e.FQDN, strings.Join(e.Reasons, "; "))
}

// Zone is a DNS domain and its records, keyed by name and type.
type Zone struct {
	// Name is the fully qualified zone name with trailing dot.
	Name    string
	records map[string]*Record
}

// New creates an empty zone. The name must be fully qualified.
func New(name string) (*Zone, error) {
	if !dns.IsFqdn(name) {
		return nil, fmt.Errorf("zone name %q must end with a dot", name)
	}
	return &Zone{
		Name:    strings.ToLower(name),
		records: make(map[string]*Record),
	}, nil
}

// Add inserts a record. A second record with the same name and type is an
// error, as is a CNAME sharing its name with any other record unless lenient.
func (z *Zone) Add(r *Record, lenient bool) error {
	r.zone = z.Name
	if _, ok := z.records[r.Key()]; ok {
		return fmt.Errorf("%w: %s %s", ErrDuplicateRecord, r.FQDN(), r.Type)
	}
	if !lenient {
		for _, other := range z.records {
			if other.Name != r.Name {
				continue
			}
			if other.Type == RecordTypeCNAME || r.Type == RecordTypeCNAME {
				return fmt.Errorf("%s: CNAME cannot coexist with other records", r.FQDN())
			}
		}
	}
	z.records[r.Key()] = r
	return nil
}

// Get returns the record for name and type, if present.
func (z *Zone) Get(name string, t RecordType) (*Record, bool) {
	r, ok := z.records[name+"/"+string(t)]
	return r, ok
}

// Records returns all records sorted by name, then type.
func (z *Zone) Records() []*Record {
	out := make([]*Record, 0, len(z.records))
	for _, r := range z.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Len returns the number of records.
func (z *Zone) Len() int { return len(z.records) }

// Hostname returns the zone-relative form of fqdn, or fqdn unchanged if it
// lies outside the zone.
func (z *Zone) Hostname(fqdn string) string {
	fqdn = strings.ToLower(dns.Fqdn(fqdn))
	if fqdn == z.Name {
		return ""
	}
	if strings.HasSuffix(fqdn, "."+z.Name) {
		return strings.TrimSuffix(fqdn, "."+z.Name)
	}
	return fqdn
}

// Unqualified returns the zone name without its trailing dot.
func (z *Zone) Unqualified() string {
	return strings.TrimSuffix(z.Name, ".")
}
