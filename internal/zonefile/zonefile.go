// Package zonefile reads and writes desired-state zone files.
//
// A zone file is a YAML mapping from record name ("" for the apex) to one
// record or a list of records:
//
//	'':
//	  - type: A
//	    ttl: 300
//	    values: [1.2.3.4, 1.2.3.5]
//	  - type: MX
//	    values:
//	      - preference: 10
//	        exchange: mx1.example.com.
//	www:
//	  type: CNAME
//	  value: example.com.
package zonefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/octodns/octodns-hetzner/pkg/zone"
)

// DefaultTTL applies to records that do not set a ttl.
const DefaultTTL = 3600

// fileRecord is one record entry as written in a zone file.
type fileRecord struct {
	Type   string    `yaml:"type"`
	TTL    int       `yaml:"ttl,omitempty"`
	Value  yaml.Node `yaml:"value,omitempty"`
	Values yaml.Node `yaml:"values,omitempty"`
}

// Warning is a problem tolerated because the zone was loaded leniently.
type Warning struct {
	Record  string
	Problem string
}

func (w Warning) String() string {
	return w.Record + ": " + w.Problem
}

// Load reads the zone file at path into a new zone named name.
func Load(path, name string, lenient bool) (*zone.Zone, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening zone file: %w", err)
	}
	defer f.Close()

	z, err := zone.New(name)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := Read(f, z, lenient)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return z, warnings, nil
}

// Read decodes a zone file from r and adds its records to z.
func Read(r io.Reader, z *zone.Zone, lenient bool) ([]Warning, error) {
	var doc map[string]yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing zone file: %w", err)
	}

	var warnings []Warning
	for name, node := range doc {
		var entries []fileRecord
		switch node.Kind {
		case yaml.SequenceNode:
			if err := node.Decode(&entries); err != nil {
				return nil, fmt.Errorf("record %q: %w", name, err)
			}
		case yaml.MappingNode:
			var entry fileRecord
			if err := node.Decode(&entry); err != nil {
				return nil, fmt.Errorf("record %q: %w", name, err)
			}
			entries = []fileRecord{entry}
		default:
			return nil, fmt.Errorf("record %q: expected a mapping or a list", name)
		}

		for _, entry := range entries {
			rec, problems, err := buildRecord(z, name, entry, lenient)
			if err != nil {
				return nil, err
			}
			for _, p := range problems {
				warnings = append(warnings, Warning{Record: rec.FQDN() + " " + string(rec.Type), Problem: p})
			}
			if err := z.Add(rec, lenient); err != nil {
				return nil, err
			}
		}
	}
	return warnings, nil
}

func buildRecord(z *zone.Zone, name string, entry fileRecord, lenient bool) (*zone.Record, []string, error) {
	t := zone.RecordType(strings.ToUpper(entry.Type))
	if !t.Supported() {
		return nil, nil, fmt.Errorf("record %q: unsupported type %q", name, entry.Type)
	}

	var nodes []*yaml.Node
	if entry.Value.Kind != 0 {
		nodes = append(nodes, &entry.Value)
	}
	switch entry.Values.Kind {
	case 0:
	case yaml.SequenceNode:
		nodes = append(nodes, entry.Values.Content...)
	default:
		nodes = append(nodes, &entry.Values)
	}

	values := make([]zone.Value, 0, len(nodes))
	for _, n := range nodes {
		v, err := decodeValue(t, n)
		if err != nil {
			return nil, nil, fmt.Errorf("record %q %s: %w", name, t, err)
		}
		values = append(values, v)
	}

	ttl := entry.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return zone.NewRecord(z, name, t, ttl, values, lenient)
}

func decodeValue(t zone.RecordType, n *yaml.Node) (zone.Value, error) {
	switch t {
	case zone.RecordTypeMX:
		var v zone.MX
		err := n.Decode(&v)
		return v, err
	case zone.RecordTypeSRV:
		var v zone.SRV
		err := n.Decode(&v)
		return v, err
	case zone.RecordTypeCAA:
		var v zone.CAA
		err := n.Decode(&v)
		return v, err
	case zone.RecordTypeDS:
		var v zone.DS
		err := n.Decode(&v)
		return v, err
	case zone.RecordTypeTLSA:
		var v zone.TLSA
		err := n.Decode(&v)
		return v, err
	default:
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		return zone.Text(s), nil
	}
}

// Write encodes z as a zone file. Names and types are written sorted.
func Write(w io.Writer, z *zone.Zone) error {
	doc := make(map[string][]map[string]any)
	for _, r := range z.Records() {
		entry := map[string]any{
			"type": string(r.Type),
			"ttl":  r.TTL,
		}
		if r.Type.SingleValue() {
			entry["value"] = encodeValue(r.Value())
		} else {
			values := make([]any, 0, len(r.Values))
			for _, v := range r.Values {
				values = append(values, encodeValue(v))
			}
			entry["values"] = values
		}
		doc[r.Name] = append(doc[r.Name], entry)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding zone file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeValue(v zone.Value) any {
	if text, ok := v.(zone.Text); ok {
		return string(text)
	}
	return v
}
