package web

import (
	"bytes"
	"context"
	"fmt"
)

// RenderIndex renders the complete configuration page. banner is optional
// operator markdown shown above the form.
func RenderIndex(ctx context.Context, banner string) ([]byte, error) {
	style, err := StaticFS.ReadFile("static/page.css")
	if err != nil {
		return nil, fmt.Errorf("read page stylesheet: %w", err)
	}
	script, err := StaticFS.ReadFile("static/page.js")
	if err != nil {
		return nil, fmt.Errorf("read page script: %w", err)
	}

	v := NewIndexView(banner)

	var buf bytes.Buffer
	if err := Layout(v.Title, string(style), string(script), IndexPage(v)).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("render index page: %w", err)
	}
	return buf.Bytes(), nil
}
