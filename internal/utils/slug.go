package utils

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9]+`)
	trimmableDash = regexp.MustCompile(`^-+|-+$`)
	maxSlugLength = 120
)

// Slugify lowercases s, strips accents and joins words with dashes.
// "Ìyá Ọ̀yọ́ Amala Spot" -> "iya-oyo-amala-spot". Empty input yields "item".
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	slug := nonSlugChars.ReplaceAllString(b.String(), "-")
	slug = trimmableDash.ReplaceAllString(slug, "")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "item"
	}
	return slug
}

// UniqueSlug returns base, or base with the lowest numeric suffix ("-2",
// "-3", ...) for which taken reports false.
func UniqueSlug(base string, taken func(candidate string) (bool, error)) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		exists, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}
