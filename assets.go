// Package portal provides the embedded templates and static assets.
package portal

import "embed"

// StaticFS holds css, js and icons served under /static/. Dev mode reads
// frontend/static from disk instead.
//
//go:embed all:frontend/static
var StaticFS embed.FS

// TemplateFS holds the html/template sources parsed at startup.
//
//go:embed all:frontend/templates
var TemplateFS embed.FS
