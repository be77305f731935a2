package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Bodija", "%bodija%"},
		{"100%", `%100\%%`},
		{"%%", `%\%\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsPattern(tt.in))
		})
	}
}
