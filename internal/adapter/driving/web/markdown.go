package web

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdRenderer      goldmark.Markdown
	bannerSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	// Banner links point off-device; they open in a new tab and carry no referrer weight.
	bannerSanitizer = bluemonday.UGCPolicy()
	bannerSanitizer.RequireNoFollowOnLinks(true)
	bannerSanitizer.AddTargetBlankToFullyQualifiedLinks(true)
}

// RenderBanner converts the operator's markdown banner to sanitized HTML.
// Returns empty string for blank input.
func RenderBanner(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return bannerSanitizer.Sanitize(src)
	}

	return bannerSanitizer.Sanitize(buf.String())
}
