package web

import "embed"

// StaticFS holds the page stylesheet and script. The control server has no
// asset routes, so both are inlined into the page at render time.
//
//go:embed static/*
var StaticFS embed.FS
