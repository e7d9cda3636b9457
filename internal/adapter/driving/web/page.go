// Package web renders the device's static configuration page with templ
// components. The page is rendered once at startup and served as bytes.
package web

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// htmlWriter accumulates the first write error so components can emit markup
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// Layout wraps body in the HTML document shell with the stylesheet and
// script inlined.
func Layout(title, style, script string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`)
		h.raw(`<meta name="viewport" content="width=device-width,initial-scale=1.0"><title>`)
		h.text(title)
		h.raw(`</title><style>`)
		h.raw(style)
		h.raw(`</style></head><body>`)
		h.render(ctx, body)
		h.raw(`<script>`)
		h.raw(script)
		h.raw(`</script></body></html>`)
		return h.err
	})
}

// IndexPage renders the account form, the pending account list, the display
// settings, and the upload controls.
func IndexPage(v IndexView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="container"><div class="header"><h1>`)
		h.text(v.Title)
		h.raw(`</h1><p>`)
		h.text(v.Subtitle)
		h.raw(`</p></div>`)

		if v.BannerHTML != "" {
			h.raw(`<div class="banner">`)
			h.render(ctx, templ.Raw(v.BannerHTML))
			h.raw(`</div>`)
		}

		h.raw(`<div class="content"><div id="status" class="status"></div>`)
		h.render(ctx, accountForm(v))
		h.raw(`<div><h3>Accounts</h3><div id="accountsList"></div></div>`)
		h.render(ctx, settingsForm(v))
		h.raw(`<div class="actions">`)
		h.raw(`<button type="button" class="btn" id="uploadConfig">Upload to Device</button>`)
		h.raw(`<button type="button" class="btn btn-danger" id="clearAll">Clear All</button>`)
		h.raw(`</div></div></div>`)
		return h.err
	})
}

func accountForm(v IndexView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<form id="addAccountForm" data-secret-length="`)
		h.text(strconv.Itoa(v.SecretLength))
		h.raw(`"><h3>Add Account</h3>`)
		h.raw(`<div class="form-group"><label for="accountName">Name *</label><input type="text" id="accountName" required></div>`)
		h.raw(`<div class="form-group"><label for="issuer">Issuer</label><input type="text" id="issuer"></div>`)
		h.raw(`<div class="form-group"><label for="secret">Secret *</label><input type="text" id="secret" autocomplete="off" required>`)
		h.raw(`<button type="button" class="btn" id="generateSecret">Generate</button></div>`)
		h.raw(`<div class="row">`)
		h.render(ctx, selectField("digits", "Digits", v.DigitOptions))
		h.render(ctx, selectField("period", "Period", v.PeriodOptions))
		h.raw(`<div class="form-group"><label for="color">Color</label><input type="color" id="color" value="`)
		h.text(v.DefaultColor)
		h.raw(`"></div></div>`)
		h.raw(`<button type="submit" class="btn">Add Account</button></form>`)
		return h.err
	})
}

func selectField(id, label string, opts []Option) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="form-group"><label for="`)
		h.text(id)
		h.raw(`">`)
		h.text(label)
		h.raw(`</label><select id="`)
		h.text(id)
		h.raw(`">`)
		for _, o := range opts {
			h.raw(`<option value="`)
			h.text(o.Value)
			h.raw(`"`)
			if o.Selected {
				h.raw(` selected`)
			}
			h.raw(`>`)
			h.text(o.Label)
			h.raw(`</option>`)
		}
		h.raw(`</select></div>`)
		return h.err
	})
}

func settingsForm(v IndexView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h3>Display</h3><div class="row">`)
		numberField(h, "brightness", "Brightness", strconv.FormatFloat(v.Settings.DisplayBrightness, 'f', -1, 64), `min="0" max="1" step="0.05"`)
		numberField(h, "rotation", "Seconds per page", strconv.Itoa(v.Settings.RotationInterval), `min="1" step="1"`)
		numberField(h, "perPage", "Codes per page", strconv.Itoa(v.Settings.CodesPerPage), `min="1" step="1"`)
		h.raw(`</div>`)
		return h.err
	})
}

func numberField(h *htmlWriter, id, label, value, bounds string) {
	h.raw(fmt.Sprintf(`<div class="form-group"><label for="%s">`, id))
	h.text(label)
	h.raw(fmt.Sprintf(`</label><input type="number" id="%s" %s value="`, id, bounds))
	h.text(value)
	h.raw(`"></div>`)
}
