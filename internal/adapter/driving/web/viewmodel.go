package web

import (
	"fmt"

	"github.com/ericfisherdev/otpdeck/internal/domain/model"
	"github.com/ericfisherdev/otpdeck/internal/domain/otpauth"
)

// Option is one entry of a select control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// IndexView carries everything the configuration page renders.
type IndexView struct {
	Title         string
	Subtitle      string
	BannerHTML    string
	DigitOptions  []Option
	PeriodOptions []Option
	DefaultColor  string
	SecretLength  int
	Settings      model.Settings
}

// NewIndexView builds the page view with form defaults taken from the
// credential and settings defaults. banner is markdown; it is rendered and
// sanitized here.
func NewIndexView(banner string) IndexView {
	return IndexView{
		Title:         "TOTP Authenticator",
		Subtitle:      "Configure your device",
		BannerHTML:    RenderBanner(banner),
		DigitOptions:  intOptions([]int{6, 8}, model.DefaultDigits, "%d"),
		PeriodOptions: intOptions([]int{30, 60}, model.DefaultPeriod, "%ds"),
		DefaultColor:  fmt.Sprintf("#%06x", model.DefaultColor),
		SecretLength:  otpauth.DefaultSecretLength,
		Settings:      model.DefaultSettings(),
	}
}

func intOptions(values []int, selected int, label string) []Option {
	opts := make([]Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, Option{
			Value:    fmt.Sprint(v),
			Label:    fmt.Sprintf(label, v),
			Selected: v == selected,
		})
	}
	return opts
}
