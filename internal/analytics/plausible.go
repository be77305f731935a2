// Package analytics renders the Plausible page-view script for the public
// site. It is configured from the environment only; the back-office
// dashboard numbers live in database/analytics.
package analytics

import (
	"html/template"
	"slices"
	"strings"

	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/logging"
)

const DefaultScriptURL = "https://plausible.io/js/script.js"

// Plausible is the effective page analytics setup.
type Plausible struct {
	Domain     string
	ScriptURL  string
	Extensions []string
}

// ValidExtensions lists the script variants Plausible serves.
var ValidExtensions = []string{
	"outbound-links",
	"file-downloads",
	"tagged-events",
	"hash",
	"compat",
	"local",
	"manual",
	"pageview-props",
	"revenue",
}

func IsValidExtension(ext string) bool {
	return slices.Contains(ValidExtensions, ext)
}

// FromConfig builds the setup from config. Unknown extensions are dropped
// with a warning so a typo never breaks the script URL.
func FromConfig(cfg config.Plausible) Plausible {
	p := Plausible{
		Domain:    strings.TrimSpace(cfg.Domain),
		ScriptURL: strings.TrimSpace(cfg.ScriptURL),
	}
	if p.ScriptURL == "" {
		p.ScriptURL = DefaultScriptURL
	}
	for _, ext := range parseExtensions(cfg.Extensions) {
		if !IsValidExtension(ext) {
			logging.Component("analytics").Warn().Str("extension", ext).Msg("ignoring unknown plausible extension")
			continue
		}
		p.Extensions = append(p.Extensions, ext)
	}
	return p
}

// Enabled reports whether a domain is configured.
func (p Plausible) Enabled() bool {
	return p.Domain != ""
}

// ScriptSrc is the script URL the tag loads, or "" when analytics is off.
func (p Plausible) ScriptSrc() string {
	if !p.Enabled() {
		return ""
	}
	return BuildScriptURL(p.ScriptURL, p.Extensions)
}

// ScriptTag returns the <script> element for the page head, or nothing
// when analytics is off.
func (p Plausible) ScriptTag() template.HTML {
	if !p.Enabled() {
		return ""
	}
	return template.HTML(`<script defer data-domain="` + template.HTMLEscapeString(p.Domain) +
		`" src="` + template.HTMLEscapeString(p.ScriptSrc()) + `"></script>`)
}

// BuildScriptURL inserts extensions before the .js suffix, the way
// Plausible names its script variants (script.outbound-links.js).
func BuildScriptURL(baseURL string, extensions []string) string {
	if len(extensions) == 0 {
		return baseURL
	}
	if base, found := strings.CutSuffix(baseURL, ".js"); found {
		return base + "." + strings.Join(extensions, ".") + ".js"
	}
	return baseURL
}

func parseExtensions(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
