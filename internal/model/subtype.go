package model

import (
	"fmt"
	"strings"
)

// SubType classifies a FatturaPA document
type SubType int

const (
	// Undetermined means detection has not run (or has not succeeded) yet
	Undetermined SubType = iota
	// Ordinaria is the standard invoice (versione FPR12 / FPA12)
	Ordinaria
	// Semplificata is the simplified invoice for small amounts (versione FSM10)
	Semplificata
)

// Canonical schema and stylesheet base names
const (
	SchemaOrdinaria    = "FatturaOrdinaria"
	SchemaSemplificata = "FatturaSemplificata"
)

func (s SubType) String() string {
	switch s {
	case Ordinaria:
		return "ordinaria"
	case Semplificata:
		return "semplificata"
	default:
		return "undetermined"
	}
}

// IsKnown reports whether the sub-type has been determined
func (s SubType) IsKnown() bool {
	return s == Ordinaria || s == Semplificata
}

// SchemaName returns the canonical schema name for the sub-type.
// Both XSD and XSL resources share this base name.
func (s SubType) SchemaName() (string, error) {
	switch s {
	case Ordinaria:
		return SchemaOrdinaria, nil
	case Semplificata:
		return SchemaSemplificata, nil
	default:
		return "", NewPreconditionError("schema lookup")
	}
}

// SubTypeForSchema maps a canonical schema name back to its sub-type
func SubTypeForSchema(name string) (SubType, error) {
	switch name {
	case SchemaOrdinaria:
		return Ordinaria, nil
	case SchemaSemplificata:
		return Semplificata, nil
	default:
		return Undetermined, fmt.Errorf("unknown schema: %s", name)
	}
}

// ParseSubType parses "ordinaria" / "semplificata" (case-insensitive)
func ParseSubType(s string) (SubType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ordinaria":
		return Ordinaria, nil
	case "semplificata":
		return Semplificata, nil
	default:
		return Undetermined, fmt.Errorf("unknown sub-type: %q", s)
	}
}

// MarshalText renders the sub-type as its lowercase name
func (s SubType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the lowercase name; "undetermined" and "" map to Undetermined
func (s *SubType) UnmarshalText(text []byte) error {
	str := strings.ToLower(strings.TrimSpace(string(text)))
	if str == "" || str == "undetermined" {
		*s = Undetermined
		return nil
	}
	v, err := ParseSubType(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
