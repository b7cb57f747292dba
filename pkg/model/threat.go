package model

import (
	"fmt"
	"strings"
)

// Status is the review state of a threat.
type Status string

const (
	StatusOpen          Status = "Open"
	StatusNotApplicable Status = "NotApplicable"
	StatusMitigated     Status = "Mitigated"
)

// Severity is the impact rating of a threat.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Category is the STRIDE class of a threat.
type Category string

const (
	Spoofing              Category = "Spoofing"
	Tampering             Category = "Tampering"
	Repudiation           Category = "Repudiation"
	InformationDisclosure Category = "InformationDisclosure"
	DenialOfService       Category = "DenialOfService"
	ElevationOfPrivilege  Category = "ElevationOfPrivilege"
)

var categoryLabels = map[Category]string{
	Spoofing:              "Spoofing",
	Tampering:             "Tampering",
	Repudiation:           "Repudiation",
	InformationDisclosure: "Information disclosure",
	DenialOfService:       "Denial of service",
	ElevationOfPrivilege:  "Elevation of privilege",
}

// String returns the label Threat Dragon displays for the category.
func (c Category) String() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// fold lower-cases and strips separators so "Not applicable",
// "not_applicable" and "NotApplicable" compare equal.
func fold(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

func parseEnum[T ~string](what string, raw []byte, values ...T) (T, error) {
	want := fold(string(raw))
	for _, v := range values {
		if fold(string(v)) == want {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", what, string(raw))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) (err error) {
	*s, err = parseEnum("status", b, StatusOpen, StatusNotApplicable, StatusMitigated)
	return err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) (err error) {
	*s, err = parseEnum("severity", b, SeverityLow, SeverityMedium, SeverityHigh)
	return err
}

// UnmarshalText implements encoding.TextUnmarshaler. Both the identifier
// form ("DenialOfService") and the display form ("Denial of service") parse.
func (c *Category) UnmarshalText(b []byte) (err error) {
	*c, err = parseEnum("threat type", b,
		Spoofing, Tampering, Repudiation, InformationDisclosure, DenialOfService, ElevationOfPrivilege)
	return err
}

// Threat is one entry of the threat catalog. Title is the join key that
// nodes reference.
type Threat struct {
	Title       string   `yaml:"title" json:"title" toml:"title" validate:"required"`
	Status      Status   `yaml:"status" json:"status" toml:"status" validate:"required,oneof=Open NotApplicable Mitigated"`
	Severity    Severity `yaml:"severity" json:"severity" toml:"severity" validate:"required,oneof=Low Medium High"`
	Category    Category `yaml:"type" json:"type" toml:"type" validate:"required,oneof=Spoofing Tampering Repudiation InformationDisclosure DenialOfService ElevationOfPrivilege"`
	Description string   `yaml:"description" json:"description" toml:"description"`
	Mitigation  string   `yaml:"mitigation" json:"mitigation" toml:"mitigation"`
	Vector      string   `yaml:"vector,omitempty" json:"vector,omitempty" toml:"vector,omitempty"`
}

// Catalog is the flat list of known threats.
type Catalog []Threat

// Lookup returns the catalog entry with exactly the given title.
// When several entries share a title the last one listed wins, so a later
// catalog file can override an earlier definition.
func (c Catalog) Lookup(title string) (Threat, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Title == title {
			return c[i], true
		}
	}
	return Threat{}, false
}
