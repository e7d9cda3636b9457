package model

// Default display settings written into a freshly seeded document.
const (
	DefaultBrightness       = 1.0
	DefaultRotationInterval = 15
	DefaultCodesPerPage     = 3
)

// Settings controls how the display runtime pages through accounts.
type Settings struct {
	DisplayBrightness float64 // 0..1
	RotationInterval  int     // seconds between pages, >= 1
	CodesPerPage      int     // >= 1
}

// DefaultSettings returns the settings used when a document carries none.
func DefaultSettings() Settings {
	return Settings{
		DisplayBrightness: DefaultBrightness,
		RotationInterval:  DefaultRotationInterval,
		CodesPerPage:      DefaultCodesPerPage,
	}
}

// Validate checks the settings bounds.
func (s Settings) Validate() error {
	switch {
	case s.DisplayBrightness < 0 || s.DisplayBrightness > 1:
		return &ValidationError{Index: -1, Field: "display_brightness", Reason: "display_brightness must be between 0 and 1"}
	case s.RotationInterval < 1:
		return &ValidationError{Index: -1, Field: "rotation_interval", Reason: "rotation_interval must be at least 1 second"}
	case s.CodesPerPage < 1:
		return &ValidationError{Index: -1, Field: "codes_per_page", Reason: "codes_per_page must be at least 1"}
	}
	return nil
}

// Document is the configuration consumed by the display runtime. Account
// order is the pagination order and survives every load/save.
type Document struct {
	Accounts []Credential
	Settings Settings
}

// DefaultDocument returns an empty document with default settings.
func DefaultDocument() Document {
	return Document{
		Accounts: []Credential{},
		Settings: DefaultSettings(),
	}
}

// Validate checks every account and the settings block.
func (d Document) Validate() error {
	if err := ValidateAccounts(d.Accounts); err != nil {
		return err
	}
	return d.Settings.Validate()
}

// Pages returns the number of display pages the document fills.
func (d Document) Pages() int {
	if len(d.Accounts) == 0 || d.Settings.CodesPerPage < 1 {
		return 0
	}
	return (len(d.Accounts) + d.Settings.CodesPerPage - 1) / d.Settings.CodesPerPage
}
