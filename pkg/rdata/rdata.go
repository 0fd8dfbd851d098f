// Package rdata converts between provider wire rows (one line of rdata text per
// value) and the typed values of the zone model.
package rdata

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/miekg/dns"

	"github.com/octodns/octodns-hetzner/pkg/zone"
)

// ErrUnsupportedType indicates the codec has no mapping for a record type.
var ErrUnsupportedType = errors.New("unsupported record type")

// DecodeError reports rdata that could not be parsed.
type DecodeError struct {
	Type  zone.RecordType
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s rdata %q: %v", e.Type, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Param is one wire entry produced by Encode.
type Param struct {
	Name  string
	Type  zone.RecordType
	Value string
	TTL   int
}

// Codec decodes and encodes record values.
type Codec struct {
	logger *slog.Logger
}

// Option is a functional option for configuring the Codec.
type Option func(*Codec)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode turns the wire values of one (name, type) group into typed values.
// Malformed CAA rows degrade to a placeholder; malformed MX, SRV, DS and TLSA
// rows fail the whole group.
func (c *Codec) Decode(t zone.RecordType, rows []string) ([]zone.Value, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	switch t {
	case zone.RecordTypeA, zone.RecordTypeAAAA, zone.RecordTypeTXT:
		out := make([]zone.Value, 0, len(rows))
		for _, row := range rows {
			out = append(out, zone.Text(EscapeSemicolons(row)))
		}
		return out, nil

	case zone.RecordTypeNS:
		out := make([]zone.Value, 0, len(rows))
		for _, row := range rows {
			out = append(out, zone.Text(appendDot(row)))
		}
		return out, nil

	case zone.RecordTypeCNAME, zone.RecordTypePTR:
		return []zone.Value{zone.Text(appendDot(rows[0]))}, nil

	case zone.RecordTypeMX:
		out := make([]zone.Value, 0, len(rows))
		for _, row := range rows {
			v, err := decodeMX(row)
			if err != nil {
				return nil, &DecodeError{Type: t, Value: row, Err: err}
			}
			out = append(out, v)
		}
		return out, nil

	case zone.RecordTypeSRV:
		out := make([]zone.Value, 0, len(rows))
		for _, row := range rows {
			v, err := decodeSRV(row)
			if err != nil {
				return nil, &DecodeError{Type: t, Value: row, Err: err}
			}
			out = append(out, v)
		}
		return out, nil

	case zone.RecordTypeCAA:
		out := make([]zone.Value, 0, len(rows))
		for _, row := range rows {
			v, err := decodeCAA(row)
			if err != nil {
				c.logger.Warn("unparseable CAA rdata, using placeholder",
					slog.String("value", row),
					slog.String("error", err.Error()),
				)
				v = zone.CAA{Flags: 0, Tag: "issue", Value: row}
			}
			out = append(out, v)
		}
		return out, nil

	case zone.RecordTypeDS, zone.RecordTypeTLSA:
		out := make([]zone.Value, 0, len(rows))
		for _, row := range rows {
			v, err := parseRR(t, row)
			if err != nil {
				return nil, &DecodeError{Type: t, Value: row, Err: err}
			}
			out = append(out, v)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}

// Encode renders a record as one Param per wire value.
func (c *Codec) Encode(r *zone.Record) ([]Param, error) {
	if !r.Type.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, r.Type)
	}

	values := r.Values
	if r.Type.SingleValue() && len(values) > 1 {
		values = values[:1]
	}

	params := make([]Param, 0, len(values))
	for _, v := range values {
		text, err := encodeValue(r.Type, v)
		if err != nil {
			return nil, err
		}
		params = append(params, Param{
			Name:  r.Name,
			Type:  r.Type,
			Value: text,
			TTL:   r.TTL,
		})
	}
	return params, nil
}

func encodeValue(t zone.RecordType, v zone.Value) (string, error) {
	switch val := v.(type) {
	case zone.Text:
		switch t {
		case zone.RecordTypeA, zone.RecordTypeAAAA, zone.RecordTypeTXT, zone.RecordTypeNS:
			return UnescapeSemicolons(string(val)), nil
		}
		return string(val), nil
	case zone.CAA:
		return fmt.Sprintf(`%d %s "%s"`, val.Flags, val.Tag, val.Value), nil
	case zone.MX:
		return fmt.Sprintf("%d %s", val.Preference, val.Exchange), nil
	case zone.SRV:
		return fmt.Sprintf("%d %d %d %s", val.Priority, val.Weight, val.Port, val.Target), nil
	case zone.DS:
		return fmt.Sprintf("%d %d %d %s", val.KeyTag, val.Algorithm, val.DigestType, val.Digest), nil
	case zone.TLSA:
		return fmt.Sprintf("%d %d %d %s", val.CertificateUsage, val.Selector, val.MatchingType,
			val.CertificateAssociationData), nil
	default:
		return "", fmt.Errorf("%s: unexpected value type %T", t, v)
	}
}

// EscapeSemicolons escapes every ';' as `\;`.
func EscapeSemicolons(s string) string {
	return strings.ReplaceAll(s, ";", `\;`)
}

// UnescapeSemicolons reverses EscapeSemicolons.
func UnescapeSemicolons(s string) string {
	return strings.ReplaceAll(s, `\;`, ";")
}

// appendDot qualifies a target unless it already is, or is the apex marker.
func appendDot(value string) string {
	if value == "@" || strings.HasSuffix(value, ".") {
		return value
	}
	return value + "."
}

func decodeMX(row string) (zone.MX, error) {
	fields := strings.Fields(row)
	if len(fields) < 2 {
		return zone.MX{}, fmt.Errorf("expected preference and exchange, got %d fields", len(fields))
	}
	pref, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return zone.MX{}, fmt.Errorf("bad preference: %w", err)
	}
	return zone.MX{
		Preference: uint16(pref),
		Exchange:   appendDot(fields[len(fields)-1]),
	}, nil
}

func decodeSRV(row string) (zone.SRV, error) {
	fields := strings.Fields(row)
	if len(fields) < 4 {
		return zone.SRV{}, fmt.Errorf("expected priority, weight, port and target, got %d fields", len(fields))
	}
	nums := make([]uint16, 3)
	for i, f := range []string{fields[0], fields[1], fields[len(fields)-2]} {
		n, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return zone.SRV{}, fmt.Errorf("bad number %q: %w", f, err)
		}
		nums[i] = uint16(n)
	}
	return zone.SRV{
		Priority: nums[0],
		Weight:   nums[1],
		Port:     nums[2],
		Target:   appendDot(fields[len(fields)-1]),
	}, nil
}

func decodeCAA(row string) (zone.CAA, error) {
	tokens, err := shlex.Split(row)
	if err != nil {
		return zone.CAA{}, err
	}
	if len(tokens) < 3 {
		return zone.CAA{}, fmt.Errorf("expected at least 3 tokens, got %d", len(tokens))
	}
	flags, err := strconv.ParseUint(tokens[0], 10, 8)
	if err != nil {
		return zone.CAA{}, fmt.Errorf("bad flags: %w", err)
	}
	return zone.CAA{Flags: uint8(flags), Tag: tokens[1], Value: tokens[2]}, nil
}

// parseRR runs DS and TLSA rdata through the zone-file grammar.
func parseRR(t zone.RecordType, row string) (zone.Value, error) {
	rr, err := dns.NewRR(fmt.Sprintf(". 0 IN %s %s", t, row))
	if err != nil {
		return nil, err
	}
	switch v := rr.(type) {
	case *dns.DS:
		if v.Digest == "" {
			return nil, errors.New("missing digest")
		}
		return zone.DS{
			KeyTag:     v.KeyTag,
			Algorithm:  v.Algorithm,
			DigestType: v.DigestType,
			Digest:     v.Digest,
		}, nil
	case *dns.TLSA:
		if v.Certificate == "" {
			return nil, errors.New("missing certificate association data")
		}
		return zone.TLSA{
			CertificateUsage:           v.Usage,
			Selector:                   v.Selector,
			MatchingType:               v.MatchingType,
			CertificateAssociationData: v.Certificate,
		}, nil
	default:
		return nil, fmt.Errorf("empty %s rdata", t)
	}
}
