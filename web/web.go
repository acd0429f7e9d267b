// Package web embeds the page templates and static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"w3lottery/internal/i18n"
	"w3lottery/internal/models"
	"w3lottery/internal/views"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:assets
var assetsFS embed.FS

// Funcs are the template helpers.
var Funcs = template.FuncMap{
	"t": func(lang, key string, kv ...any) string {
		return i18n.T(lang, key, i18n.Pairs(kv...))
	},
	"short": views.ShortAddress,
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"balls": models.ParseNumbers,
	"seq": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
	"has":   func(nums []int, n int) bool { return slices.Contains(nums, n) },
	"add":   func(a, b int) int { return a + b },
	"lower": strings.ToLower,
	"date":  views.FormatDate,
}

// Templates parses every embedded template.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/*.html")
}

// Assets returns the static files rooted at assets/.
func Assets() (fs.FS, error) {
	return fs.Sub(assetsFS, "assets")
}
