package model

import (
	"regexp"
	"strings"
)

// Default values applied to fields an uploader or importer leaves out.
const (
	DefaultDigits = 6
	DefaultPeriod = 30
	DefaultColor  = 0xFFFFFF

	maxColor = 0xFFFFFF
)

var base32Secret = regexp.MustCompile(`^[A-Z2-7]+=*$`)

// Credential is one OTP account as persisted and transported: the parameters
// the code generator needs plus how the display labels and colors it.
// Name is stored untruncated; truncation is a display concern.
type Credential struct {
	Name   string
	Issuer string
	Secret string // base32, upper-case
	Digits int    // 6 or 8
	Period int    // seconds
	Color  uint32 // 24-bit RGB
}

// NewCredential builds a Credential with defaults applied and the secret
// case-normalized. It does not validate; call Validate before persisting.
func NewCredential(name, issuer, secret string) Credential {
	return Credential{
		Name:   name,
		Issuer: issuer,
		Secret: NormalizeSecret(secret),
		Digits: DefaultDigits,
		Period: DefaultPeriod,
		Color:  DefaultColor,
	}
}

// NormalizeSecret upper-cases a base32 secret. Authenticator apps commonly
// hand out lower-case secrets; the alphabet check is case-sensitive.
func NormalizeSecret(secret string) string {
	return strings.ToUpper(secret)
}

// Label returns "issuer: name" when an issuer is set, otherwise the name.
func (c Credential) Label() string {
	if c.Issuer != "" {
		return c.Issuer + ": " + c.Name
	}
	return c.Name
}

// Validate reports whether c may enter the authoritative store. The returned
// error is a *ValidationError with Index -1; callers validating a list set
// the index themselves.
func (c Credential) Validate() error {
	switch {
	case c.Name == "":
		return &ValidationError{Index: -1, Field: "name", Reason: "name is required"}
	case c.Secret == "":
		return &ValidationError{Index: -1, Field: "secret", Reason: "secret is required"}
	case !base32Secret.MatchString(c.Secret):
		return &ValidationError{Index: -1, Field: "secret", Reason: "secret is not valid base32"}
	case c.Digits != 6 && c.Digits != 8:
		return &ValidationError{Index: -1, Field: "digits", Reason: "digits must be 6 or 8"}
	case c.Period <= 0:
		return &ValidationError{Index: -1, Field: "period", Reason: "period must be a positive number of seconds"}
	case c.Color > maxColor:
		return &ValidationError{Index: -1, Field: "color", Reason: "color must be a 24-bit RGB value"}
	}
	return nil
}
