package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/choplife/choplifeib/internal/config"
)

func TestBuildScriptURL(t *testing.T) {
	tests := []struct {
		name       string
		baseURL    string
		extensions []string
		expected   string
	}{
		{"no extensions", DefaultScriptURL, nil, DefaultScriptURL},
		{"single extension", DefaultScriptURL, []string{"outbound-links"}, "https://plausible.io/js/script.outbound-links.js"},
		{
			"multiple extensions", DefaultScriptURL, []string{"outbound-links", "file-downloads"},
			"https://plausible.io/js/script.outbound-links.file-downloads.js",
		},
		{
			"self-hosted", "https://stats.choplife.ng/js/script.js", []string{"tagged-events"},
			"https://stats.choplife.ng/js/script.tagged-events.js",
		},
		{"no .js suffix", "https://example.com/track", []string{"hash"}, "https://example.com/track"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildScriptURL(tt.baseURL, tt.extensions))
		})
	}
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.Plausible{Domain: " choplife.ng ", Extensions: "outbound-links, bogus ,file-downloads"})

	assert.True(t, p.Enabled())
	assert.Equal(t, "choplife.ng", p.Domain)
	assert.Equal(t, DefaultScriptURL, p.ScriptURL)
	assert.Equal(t, []string{"outbound-links", "file-downloads"}, p.Extensions)

	assert.False(t, FromConfig(config.Plausible{}).Enabled())
}

func TestScriptTag(t *testing.T) {
	tests := []struct {
		name     string
		p        Plausible
		expected string
	}{
		{"disabled", Plausible{ScriptURL: DefaultScriptURL}, ""},
		{
			"basic", Plausible{Domain: "choplife.ng", ScriptURL: DefaultScriptURL},
			`<script defer data-domain="choplife.ng" src="https://plausible.io/js/script.js"></script>`,
		},
		{
			"with extension", Plausible{Domain: "choplife.ng", ScriptURL: DefaultScriptURL, Extensions: []string{"outbound-links"}},
			`<script defer data-domain="choplife.ng" src="https://plausible.io/js/script.outbound-links.js"></script>`,
		},
		{
			"escapes domain", Plausible{Domain: `x"><script>`, ScriptURL: DefaultScriptURL},
			`<script defer data-domain="x&#34;&gt;&lt;script&gt;" src="https://plausible.io/js/script.js"></script>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.p.ScriptTag()))
		})
	}
}

func TestIsValidExtension(t *testing.T) {
	for _, ext := range ValidExtensions {
		assert.True(t, IsValidExtension(ext), ext)
	}
	for _, ext := range []string{"", "outbound", "foo"} {
		assert.False(t, IsValidExtension(ext), ext)
	}
}

func TestScriptSrc(t *testing.T) {
	assert.Empty(t, Plausible{ScriptURL: DefaultScriptURL}.ScriptSrc())
	p := Plausible{Domain: "choplife.ng", ScriptURL: DefaultScriptURL, Extensions: []string{"hash"}}
	assert.Equal(t, "https://plausible.io/js/script.hash.js", p.ScriptSrc())
}
