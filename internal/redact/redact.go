// Package redact turns sensitive or untrusted values into strings that are
// safe to place straight into dashboard markup.
package redact

import (
	"encoding/json"
	"html"
	"log/slog"
	"strings"
)

const (
	// Unknown is shown in place of values that are not configured.
	Unknown = "(unknown)"
	// Mask replaces everything after the disclosed prefix of a credential.
	Mask = "***"

	revealRunes = 2
)

// MaskCredential discloses the first two characters of v followed by Mask.
// Empty or unknown values become Unknown.
func MaskCredential(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == Unknown {
		return Unknown
	}
	n := 0
	for i := range v {
		if n == revealRunes {
			return v[:i] + Mask
		}
		n++
	}
	return v + Mask
}

// EscapeForDisplay neutralizes <, >, &, ' and " for an HTML text or
// attribute context. Strings without those characters come back unchanged.
func EscapeForDisplay(v string) string {
	return html.EscapeString(v)
}

// OrUnknown returns Unknown for blank values.
func OrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return Unknown
	}
	return v
}

// Credential holds a secret identifier. Every rendering of it, including
// fmt, JSON and slog, yields the masked form.
type Credential struct {
	raw string
}

func NewCredential(raw string) Credential { return Credential{raw: raw} }

func (c Credential) Masked() string { return MaskCredential(c.raw) }

func (c Credential) String() string               { return c.Masked() }
func (c Credential) GoString() string             { return "redact.Credential(" + c.Masked() + ")" }
func (c Credential) LogValue() slog.Value         { return slog.StringValue(c.Masked()) }
func (c Credential) MarshalJSON() ([]byte, error) { return json.Marshal(c.Masked()) }
