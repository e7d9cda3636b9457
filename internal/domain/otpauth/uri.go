// Package otpauth converts between otpauth:// provisioning URIs and
// credential records.
//
// Only %20 is decoded in labels and parameter values. Any other percent
// escape is kept literally, so a secret or name containing %3A or %40 comes
// through as typed. This matches the device firmware and is a known
// limitation rather than a full RFC 3986 decoder.
package otpauth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericfisherdev/otpdeck/internal/domain/model"
)

const scheme = "otpauth://"

var (
	// ErrMalformedURI indicates the input is not shaped like
	// otpauth://TYPE/LABEL?PARAMS.
	ErrMalformedURI = errors.New("malformed otpauth uri")

	// ErrMissingSecret indicates a well-formed URI without a secret parameter.
	ErrMissingSecret = errors.New("otpauth uri has no secret")
)

// Parse turns an otpauth URI into a candidate credential. The result carries
// defaults for anything the URI omits and an upper-cased secret, but it is not
// validated: the caller decides whether to keep it.
func Parse(uri string) (model.Credential, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, scheme) {
		return model.Credential{}, fmt.Errorf("%w: missing %s prefix", ErrMalformedURI, scheme)
	}

	path, query, ok := strings.Cut(uri[len(scheme):], "?")
	if !ok {
		return model.Credential{}, fmt.Errorf("%w: no parameters", ErrMalformedURI)
	}

	otpType, label, ok := strings.Cut(path, "/")
	if !ok || otpType == "" {
		return model.Credential{}, fmt.Errorf("%w: expected TYPE/LABEL", ErrMalformedURI)
	}
	if label == "" {
		return model.Credential{}, fmt.Errorf("%w: empty label", ErrMalformedURI)
	}

	var issuer, name string
	if left, right, found := strings.Cut(label, ":"); found {
		issuer, name = unescape(left), unescape(right)
	} else {
		name = unescape(label)
	}

	params := parseParams(query)

	secret := params["secret"]
	if secret == "" {
		return model.Credential{}, ErrMissingSecret
	}
	if issuer == "" {
		issuer = params["issuer"]
	}

	cred := model.NewCredential(name, issuer, secret)
	cred.Digits = intParam(params, "digits", model.DefaultDigits)
	cred.Period = intParam(params, "period", model.DefaultPeriod)
	return cred, nil
}

// Format renders c as a TOTP provisioning URI that Parse reads back.
func Format(c model.Credential) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("totp/")
	if c.Issuer != "" {
		b.WriteString(escape(c.Issuer))
		b.WriteByte(':')
	}
	b.WriteString(escape(c.Name))
	b.WriteString("?secret=")
	b.WriteString(c.Secret)
	if c.Issuer != "" {
		b.WriteString("&issuer=")
		b.WriteString(escape(c.Issuer))
	}
	b.WriteString("&digits=")
	b.WriteString(strconv.Itoa(c.Digits))
	b.WriteString("&period=")
	b.WriteString(strconv.Itoa(c.Period))
	return b.String()
}

// parseParams splits k=v pairs on '&'. Entries without '=' are skipped and a
// repeated key keeps its last value.
func parseParams(query string) map[string]string {
	params := make(map[string]string)
	for _, entry := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		params[key] = unescape(value)
	}
	return params
}

func intParam(params map[string]string, key string, fallback int) int {
	raw, ok := params[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func unescape(s string) string { return strings.ReplaceAll(s, "%20", " ") }

func escape(s string) string { return strings.ReplaceAll(s, " ", "%20") }
