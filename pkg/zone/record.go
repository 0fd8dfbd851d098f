package zone

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// RecordType represents the type of DNS record.
type RecordType string

const (
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeCAA   RecordType = "CAA"
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypeDS    RecordType = "DS"
	RecordTypeMX    RecordType = "MX"
	RecordTypeNS    RecordType = "NS"
	RecordTypePTR   RecordType = "PTR"
	RecordTypeSRV   RecordType = "SRV"
	RecordTypeTLSA  RecordType = "TLSA"
	RecordTypeTXT   RecordType = "TXT"
)

// SupportedTypes lists every record type the model understands, sorted.
var SupportedTypes = []RecordType{
	RecordTypeA, RecordTypeAAAA, RecordTypeCAA, RecordTypeCNAME, RecordTypeDS, RecordTypeMX,
	RecordTypeNS, RecordTypePTR, RecordTypeSRV, RecordTypeTLSA, RecordTypeTXT,
}

// Supported reports whether t is one of SupportedTypes.
func (t RecordType) Supported() bool {
	for _, s := range SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

// SingleValue reports whether records of this type carry exactly one value.
func (t RecordType) SingleValue() bool {
	return t == RecordTypeCNAME || t == RecordTypePTR
}

// Record is a set of values sharing a name, type and TTL.
type Record struct {
	// Name is relative to the zone apex; "" denotes the apex.
	Name   string
	Type   RecordType
	TTL    int
	Values []Value

	zone string
}

// NewRecord builds and validates a record for zone z. With lenient set, validation
// problems are returned as warnings instead of failing construction.
func NewRecord(z *Zone, name string, t RecordType, ttl int, values []Value, lenient bool) (*Record, []string, error) {
	r := &Record{
		Name:   strings.ToLower(name),
		Type:   t,
		TTL:    ttl,
		Values: values,
	}
	if z != nil {
		r.zone = z.Name
	}

	problems := r.validate()
	if len(problems) > 0 && !lenient {
		return nil, nil, &ValidationError{FQDN: r.FQDN(), Reasons: problems}
	}
	return r, problems, nil
}

// Zone returns the name of the zone the record was built for.
func (r *Record) Zone() string { return r.zone }

// FQDN returns the fully qualified record name.
func (r *Record) FQDN() string {
	if r.Name == "" {
		return r.zone
	}
	if r.zone == "" {
		return dns.Fqdn(r.Name)
	}
	return r.Name + "." + r.zone
}

// Value returns the first value, for single-value types.
func (r *Record) Value() Value {
	if len(r.Values) == 0 {
		return nil
	}
	return r.Values[0]
}

// Key identifies the record within its zone.
func (r *Record) Key() string {
	return r.Name + "/" + string(r.Type)
}

// Strings returns the canonical rdata of every value, sorted.
func (r *Record) Strings() []string {
	out := make([]string, 0, len(r.Values))
	for _, v := range r.Values {
		out = append(out, v.String())
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two records carry the same TTL and value set.
func (r *Record) Equal(o *Record) bool {
	if r.Name != o.Name || r.Type != o.Type || r.TTL != o.TTL {
		return false
	}
	a, b := r.Strings(), o.Strings()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	return fmt.Sprintf("%s %d %s %s", r.FQDN(), r.TTL, r.Type, strings.Join(r.Strings(), ", "))
}

func (r *Record) validate() []string {
	var problems []string

	if strings.HasSuffix(r.Name, ".") {
		problems = append(problems, "name must be relative to the zone")
	} else if r.Name != "" {
		if _, ok := dns.IsDomainName(r.Name); !ok {
			problems = append(problems, fmt.Sprintf("invalid name %q", r.Name))
		}
	}
	if !r.Type.Supported() {
		return append(problems, fmt.Sprintf("unsupported type %s", r.Type))
	}
	if r.TTL < 0 {
		problems = append(problems, "ttl must be non-negative")
	}
	if len(r.Values) == 0 {
		return append(problems, "missing value(s)")
	}
	if r.Type.SingleValue() && len(r.Values) != 1 {
		problems = append(problems, fmt.Sprintf("%s takes exactly one value", r.Type))
	}
	if r.Type == RecordTypeCNAME && r.Name == "" {
		problems = append(problems, "CNAME not allowed at the zone apex")
	}

	for _, v := range r.Values {
		if p := validateValue(r.Type, v); p != "" {
			problems = append(problems, p)
		}
	}
	return problems
}

func validateValue(t RecordType, v Value) string {
	switch t {
	case RecordTypeA, RecordTypeAAAA:
		text, ok := v.(Text)
		if !ok {
			return fmt.Sprintf("%s value must be an address", t)
		}
		addr, err := netip.ParseAddr(string(text))
		if err != nil {
			return fmt.Sprintf("invalid address %q", text)
		}
		if (t == RecordTypeA) != addr.Is4() {
			return fmt.Sprintf("%q is not an %s address", text, t)
		}
	case RecordTypeCNAME, RecordTypeNS, RecordTypePTR:
		text, ok := v.(Text)
		if !ok {
			return fmt.Sprintf("%s value must be a hostname", t)
		}
		return validateTarget(string(text))
	case RecordTypeTXT:
		text, ok := v.(Text)
		if !ok {
			return "TXT value must be text"
		}
		if hasUnescapedSemicolon(string(text)) {
			return fmt.Sprintf("unescaped ; in %q", text)
		}
	case RecordTypeMX:
		mx, ok := v.(MX)
		if !ok {
			return "MX value must be preference/exchange"
		}
		return validateTarget(mx.Exchange)
	case RecordTypeSRV:
		srv, ok := v.(SRV)
		if !ok {
			return "SRV value must be priority/weight/port/target"
		}
		return validateTarget(srv.Target)
	case RecordTypeCAA:
		caa, ok := v.(CAA)
		if !ok {
			return "CAA value must be flags/tag/value"
		}
		if caa.Tag == "" {
			return "CAA tag is required"
		}
	case RecordTypeDS:
		ds, ok := v.(DS)
		if !ok {
			return "DS value must be key_tag/algorithm/digest_type/digest"
		}
		if !isHex(ds.Digest) {
			return fmt.Sprintf("DS digest %q is not hex", ds.Digest)
		}
	case RecordTypeTLSA:
		tlsa, ok := v.(TLSA)
		if !ok {
			return "TLSA value must be usage/selector/matching_type/data"
		}
		if !isHex(tlsa.CertificateAssociationData) {
			return fmt.Sprintf("TLSA data %q is not hex", tlsa.CertificateAssociationData)
		}
	}
	return ""
}

func validateTarget(target string) string {
	if target == "." {
		return ""
	}
	if !dns.IsFqdn(target) {
		return fmt.Sprintf("%q is missing a trailing dot", target)
	}
	if _, ok := dns.IsDomainName(target); !ok {
		return fmt.Sprintf("invalid hostname %q", target)
	}
	return ""
}

func hasUnescapedSemicolon(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ';' && (i == 0 || s[i-1] != '\\') {
			return true
		}
	}
	return false
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
