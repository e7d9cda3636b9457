package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Errors returned by DecodeDocument and DecodeUpload for input that is not a
// configuration document at all. Record-level problems are *ValidationError.
var (
	// ErrMalformedJSON indicates the bytes are not JSON.
	ErrMalformedJSON = errors.New("malformed json")

	// ErrInvalidFormat indicates JSON without an "accounts" array.
	ErrInvalidFormat = errors.New("invalid configuration format")
)

type wireCredential struct {
	Name   string  `json:"name"`
	Issuer string  `json:"issuer"`
	Secret string  `json:"secret"`
	Digits *int    `json:"digits,omitempty"`
	Period *int    `json:"period,omitempty"`
	Color  *uint32 `json:"color,omitempty"`
}

type wireSettings struct {
	DisplayBrightness float64 `json:"display_brightness"`
	RotationInterval  int     `json:"rotation_interval"`
	CodesPerPage      int     `json:"codes_per_page"`
}

type wireDocument struct {
	Accounts []wireCredential `json:"accounts"`
	Settings *wireSettings    `json:"settings,omitempty"`
}

func (w wireCredential) credential() Credential {
	c := NewCredential(w.Name, w.Issuer, w.Secret)
	if w.Digits != nil {
		c.Digits = *w.Digits
	}
	if w.Period != nil {
		c.Period = *w.Period
	}
	if w.Color != nil {
		c.Color = *w.Color
	}
	return c
}

func toWireCredential(c Credential) wireCredential {
	digits, period, color := c.Digits, c.Period, c.Color
	return wireCredential{
		Name:   c.Name,
		Issuer: c.Issuer,
		Secret: c.Secret,
		Digits: &digits,
		Period: &period,
		Color:  &color,
	}
}

// EncodeDocument serializes doc in the persisted JSON layout.
func EncodeDocument(doc Document) ([]byte, error) {
	return encode(doc, false)
}

// EncodeDocumentIndent serializes doc for humans (console backups).
func EncodeDocumentIndent(doc Document) ([]byte, error) {
	return encode(doc, true)
}

func encode(doc Document, indent bool) ([]byte, error) {
	w := wireDocument{
		Accounts: make([]wireCredential, 0, len(doc.Accounts)),
		Settings: &wireSettings{
			DisplayBrightness: doc.Settings.DisplayBrightness,
			RotationInterval:  doc.Settings.RotationInterval,
			CodesPerPage:      doc.Settings.CodesPerPage,
		},
	}
	for _, c := range doc.Accounts {
		w.Accounts = append(w.Accounts, toWireCredential(c))
	}

	if indent {
		return json.MarshalIndent(w, "", "  ")
	}
	return json.Marshal(w)
}

// Upload is a decoded configuration upload: the accounts in order and the
// settings block, which is nil when the uploader sent none.
type Upload struct {
	Accounts []Credential
	Settings *Settings
}

// DecodeUpload parses untrusted upload bytes. It returns ErrMalformedJSON,
// ErrInvalidFormat, or a *ValidationError for the first record that cannot
// be decoded into a Credential. Decoded records are not yet validated.
func DecodeUpload(data []byte) (Upload, error) {
	top, err := decodeTop(data)
	if err != nil {
		return Upload{}, err
	}

	raw, ok := top["accounts"]
	if !ok {
		return Upload{}, fmt.Errorf("%w: accounts missing", ErrInvalidFormat)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil || records == nil {
		return Upload{}, fmt.Errorf("%w: accounts must be a list", ErrInvalidFormat)
	}

	upload := Upload{Accounts: make([]Credential, 0, len(records))}
	for i, rec := range records {
		var w wireCredential
		if err := strictUnmarshal(rec, &w); err != nil {
			return Upload{}, &ValidationError{Index: i, Field: "", Reason: "malformed record"}
		}
		upload.Accounts = append(upload.Accounts, w.credential())
	}

	if raw, ok := top["settings"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		var ws wireSettings
		if err := strictUnmarshal(raw, &ws); err != nil {
			return Upload{}, &ValidationError{Index: -1, Field: "settings", Reason: "malformed settings"}
		}
		s := Settings(ws)
		upload.Settings = &s
	}

	return upload, nil
}

// DecodeDocument parses persisted bytes into a document. A missing settings
// block decodes to DefaultSettings. The result is not validated.
func DecodeDocument(data []byte) (Document, error) {
	top, err := decodeTop(data)
	if err != nil {
		return Document{}, err
	}
	if _, ok := top["accounts"]; !ok {
		return Document{}, fmt.Errorf("%w: accounts missing", ErrInvalidFormat)
	}

	var w wireDocument
	if err := strictUnmarshal(data, &w); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}

	doc := Document{
		Accounts: make([]Credential, 0, len(w.Accounts)),
		Settings: DefaultSettings(),
	}
	for _, wc := range w.Accounts {
		doc.Accounts = append(doc.Accounts, wc.credential())
	}
	if w.Settings != nil {
		doc.Settings = Settings(*w.Settings)
	}
	return doc, nil
}

// decodeTop splits a JSON object into its members, telling bytes that are
// not JSON apart from JSON of the wrong shape.
func decodeTop(data []byte) (map[string]json.RawMessage, error) {
	if !json.Valid(data) {
		return nil, ErrMalformedJSON
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return nil, fmt.Errorf("%w: expected a json object", ErrInvalidFormat)
	}
	return top, nil
}

// strictUnmarshal decodes a single JSON value and rejects trailing data.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after json value")
	}
	return nil
}
