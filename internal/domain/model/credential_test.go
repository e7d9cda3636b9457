package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCredential() Credential {
	return Credential{Name: "Mail", Secret: "JBSWY3DPEHPK3PXP", Digits: 6, Period: 30, Color: DefaultColor}
}

func TestCredential_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Credential)
		wantField string
	}{
		{name: "valid", mutate: func(*Credential) {}},
		{name: "valid eight digits", mutate: func(c *Credential) { c.Digits = 8 }},
		{name: "valid padded secret", mutate: func(c *Credential) { c.Secret = "MZXW6===" }},
		{name: "valid odd period", mutate: func(c *Credential) { c.Period = 45 }},
		{name: "empty name", mutate: func(c *Credential) { c.Name = "" }, wantField: "name"},
		{name: "empty secret", mutate: func(c *Credential) { c.Secret = "" }, wantField: "secret"},
		{name: "lower-case secret", mutate: func(c *Credential) { c.Secret = "jbswy3dpehpk3pxp" }, wantField: "secret"},
		{name: "secret outside alphabet", mutate: func(c *Credential) { c.Secret = "JBSWY3DPEHPK3PX1" }, wantField: "secret"},
		{name: "padding before data", mutate: func(c *Credential) { c.Secret = "=JBSWY" }, wantField: "secret"},
		{name: "only padding", mutate: func(c *Credential) { c.Secret = "===" }, wantField: "secret"},
		{name: "seven digits", mutate: func(c *Credential) { c.Digits = 7 }, wantField: "digits"},
		{name: "zero digits", mutate: func(c *Credential) { c.Digits = 0 }, wantField: "digits"},
		{name: "zero period", mutate: func(c *Credential) { c.Period = 0 }, wantField: "period"},
		{name: "negative period", mutate: func(c *Credential) { c.Period = -30 }, wantField: "period"},
		{name: "color beyond 24 bits", mutate: func(c *Credential) { c.Color = 0x1000000 }, wantField: "color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCredential()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Equal(t, -1, verr.Index)
		})
	}
}

func TestNewCredential_DefaultsAndNormalization(t *testing.T) {
	c := NewCredential("alice", "Example", "jbswy3dpehpk3pxp")

	assert.Equal(t, "JBSWY3DPEHPK3PXP", c.Secret)
	assert.Equal(t, DefaultDigits, c.Digits)
	assert.Equal(t, DefaultPeriod, c.Period)
	assert.Equal(t, uint32(DefaultColor), c.Color)
	assert.NoError(t, c.Validate())
}

func TestCredential_Label(t *testing.T) {
	assert.Equal(t, "Example: alice", Credential{Name: "alice", Issuer: "Example"}.Label())
	assert.Equal(t, "alice", Credential{Name: "alice"}.Label())
}

func TestValidateAccounts_ReportsIndex(t *testing.T) {
	bad := validCredential()
	bad.Digits = 9

	err := ValidateAccounts([]Credential{validCredential(), validCredential(), bad})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Index)
	assert.Equal(t, "digits", verr.Field)
	assert.Equal(t, "account 2: digits must be 6 or 8", verr.Error())
	assert.True(t, IsValidationError(err))
}

func TestValidateAccounts_Empty(t *testing.T) {
	assert.NoError(t, ValidateAccounts(nil))
}

func TestSettings_Validate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	tests := []struct {
		name     string
		settings Settings
	}{
		{name: "brightness above one", settings: Settings{DisplayBrightness: 1.5, RotationInterval: 15, CodesPerPage: 3}},
		{name: "negative brightness", settings: Settings{DisplayBrightness: -0.1, RotationInterval: 15, CodesPerPage: 3}},
		{name: "zero rotation", settings: Settings{DisplayBrightness: 1, RotationInterval: 0, CodesPerPage: 3}},
		{name: "zero codes per page", settings: Settings{DisplayBrightness: 1, RotationInterval: 15, CodesPerPage: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsValidationError(tt.settings.Validate()))
		})
	}
}

func TestDocument_Pages(t *testing.T) {
	doc := DefaultDocument()
	assert.Equal(t, 0, doc.Pages())

	for range 7 {
		doc.Accounts = append(doc.Accounts, validCredential())
	}
	assert.Equal(t, 3, doc.Pages())
}
