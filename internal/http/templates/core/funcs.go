// Package core holds the template helpers shared by every page.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/target/municipal-portal/internal/domain/roads"
)

// DisplayLocation is the timezone dates are shown in.
//
//nolint:gochecknoglobals // fixed display zone
var DisplayLocation = time.FixedZone("BRT", -3*60*60)

//nolint:gochecknoglobals // stateless printer
var numberPrinter = message.NewPrinter(language.BrazilianPortuguese)

// Deps holds the dependencies for constructing the core template func map.
type Deps struct {
	Template           **template.Template
	ContentTemplateFor func(string) string
}

// Funcs returns a template.FuncMap with the helpers used across templates.
func Funcs(deps Deps) template.FuncMap {
	funcs := template.FuncMap{
		"sectionTmpl":  deps.ContentTemplateFor,
		"dateBR":       DateBR,
		"timeTag":      TimeTag,
		"brl":          roads.FormatBRL,
		"formatNumber": FormatNumber,
		"seq":          Seq,
		"add":          func(a, b int) int { return a + b },
		"sub":          func(a, b int) int { return a - b },
		"contains":     strings.Contains,
		"truncateText": TruncateText,
		"deref":        derefString,
		"dict":         Dict,
	}
	addRenderFuncs(funcs, deps)
	return funcs
}

func addRenderFuncs(funcs template.FuncMap, deps Deps) {
	funcs["renderSection"] = func(page string, data any) (template.HTML, error) {
		if deps.Template == nil || *deps.Template == nil {
			return "", errors.New("template not initialized")
		}
		var buf bytes.Buffer
		if err := (*deps.Template).ExecuteTemplate(&buf, deps.ContentTemplateFor(page), data); err != nil {
			return "", err
		}
		// #nosec G203 - output of our own html/template set, already escaped
		return template.HTML(buf.String()), nil
	}

	funcs["toJSON"] = func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func asTime(ts any) time.Time {
	switch v := ts.(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	}
	return time.Time{}
}

// DateBR formats a timestamp as dd/mm/yyyy hh:mm in the display zone.
// Zero times render as an empty string.
func DateBR(ts any) string {
	t := asTime(ts)
	if t.IsZero() {
		return ""
	}
	return t.In(DisplayLocation).Format("02/01/2006 15:04")
}

// TimeTag renders a <time> element carrying the RFC 3339 instant.
func TimeTag(ts any) template.HTML {
	t := asTime(ts)
	if t.IsZero() {
		return ""
	}
	// #nosec G203 - built from formatted timestamps only
	return template.HTML(fmt.Sprintf(`<time datetime="%s">%s</time>`,
		t.UTC().Format(time.RFC3339), template.HTMLEscapeString(DateBR(t))))
}

// FormatNumber formats an integer with pt-BR thousands separators (1.234).
func FormatNumber(v any) string {
	switch x := v.(type) {
	case int, int64, int32, uint, uint64, uint32:
		return numberPrinter.Sprintf("%d", x)
	default:
		return fmt.Sprint(v)
	}
}

// Seq returns 1..n, used to render page links.
func Seq(n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// TruncateText truncates s to maxLen runes, ending with an ellipsis when cut.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen > 1 {
		return string(runes[:maxLen-1]) + "…"
	}
	return string(runes[:1])
}

// Dict builds a map from alternating keys and values, for passing several
// values to a nested template.
func Dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict requires key/value pairs")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
