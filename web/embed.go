package web

import "embed"

// TemplatesFS embeds the printable report templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the report stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
