package report

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars   = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators = regexp.MustCompile(`[-\s]+`)
)

// fallbackSlug names files whose name has no usable characters.
const fallbackSlug = "dataset"

// Slugify folds a file name to lowercase ASCII letters, digits, underscores
// and single hyphens. "Plant A (2024).csv" becomes "plant-a-2024csv".
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	slug := nonSlugChars.ReplaceAllString(strings.ToLower(b.String()), "")
	slug = slugSeparators.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-_")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// Title is the document title stored in the PDF metadata.
func Title(fileName string) string {
	return "equipment-report-" + Slugify(fileName)
}

// Filename is the download name offered for a dataset's report.
func Filename(fileName string) string {
	return Title(fileName) + ".pdf"
}
