package zone

import (
	"fmt"
	"strings"
)

// Value is one rdata entry of a record. The set of implementations is closed:
// Text, MX, SRV, CAA, DS and TLSA.
type Value interface {
	// String returns the canonical single-line rdata text.
	String() string

	isValue()
}

// Text is the value of A, AAAA, NS, TXT, CNAME and PTR records.
// TXT values keep semicolons escaped as `\;`.
type Text string

func (t Text) String() string { return string(t) }
func (Text) isValue()         {}

// MX is a mail exchanger value.
type MX struct {
	Preference uint16 `yaml:"preference"`
	Exchange   string `yaml:"exchange"`
}

func (v MX) String() string { return fmt.Sprintf("%d %s", v.Preference, v.Exchange) }
func (MX) isValue()         {}

// SRV is a service locator value.
type SRV struct {
	Priority uint16 `yaml:"priority"`
	Weight   uint16 `yaml:"weight"`
	Port     uint16 `yaml:"port"`
	Target   string `yaml:"target"`
}

func (v SRV) String() string {
	return fmt.Sprintf("%d %d %d %s", v.Priority, v.Weight, v.Port, v.Target)
}
func (SRV) isValue() {}

// CAA is a certification authority authorization value.
type CAA struct {
	Flags uint8  `yaml:"flags"`
	Tag   string `yaml:"tag"`
	Value string `yaml:"value"`
}

func (v CAA) String() string { return fmt.Sprintf("%d %s %q", v.Flags, v.Tag, v.Value) }
func (CAA) isValue()         {}

// DS is a delegation signer value.
type DS struct {
	KeyTag     uint16 `yaml:"key_tag"`
	Algorithm  uint8  `yaml:"algorithm"`
	DigestType uint8  `yaml:"digest_type"`
	Digest     string `yaml:"digest"`
}

func (v DS) String() string {
	return fmt.Sprintf("%d %d %d %s", v.KeyTag, v.Algorithm, v.DigestType, strings.ToLower(v.Digest))
}
func (DS) isValue() {}

// TLSA is a DANE certificate association value.
type TLSA struct {
	CertificateUsage           uint8  `yaml:"certificate_usage"`
	Selector                   uint8  `yaml:"selector"`
	MatchingType               uint8  `yaml:"matching_type"`
	CertificateAssociationData string `yaml:"certificate_association_data"`
}

func (v TLSA) String() string {
	return fmt.Sprintf("%d %d %d %s", v.CertificateUsage, v.Selector, v.MatchingType,
		strings.ToLower(v.CertificateAssociationData))
}
func (TLSA) isValue() {}
