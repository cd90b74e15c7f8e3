package extraction

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	headingScanLines = 10
	titleScanLines   = 5
	minTitleLen      = 10
	maxTitleLen      = 100
)

var headingPattern = regexp.MustCompile(
	`(?i)(antrag|formular|erklärung|nebenkostenabrechnung|betriebskostenabrechnung|jahresabrechnung|application|form\b|declaration)`)

var stemSeparators = strings.NewReplacer("_", " ", "-", " ")

// DeriveTitle picks a document title: a heading line near the top, else the
// first reasonably sized line, else the file name. Lines holding blanks to
// fill in are never used.
func DeriveTitle(text, path string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if i >= headingScanLines {
			break
		}
		line = strings.TrimSpace(line)
		if isFillIn(line) {
			continue
		}
		if n := utf8.RuneCountInString(line); n > 0 && n < maxTitleLen && headingPattern.MatchString(line) {
			return line
		}
	}

	for i, line := range lines {
		if i >= titleScanLines {
			break
		}
		line = strings.TrimSpace(line)
		if isFillIn(line) {
			continue
		}
		if n := utf8.RuneCountInString(line); n > minTitleLen && n < maxTitleLen {
			return line
		}
	}

	return TitleFromFilename(path)
}

func isFillIn(line string) bool {
	return strings.Contains(line, "__")
}

// TitleFromFilename turns "antrag_wohngeld-2024.pdf" into "Antrag Wohngeld 2024".
func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.Join(strings.Fields(stemSeparators.Replace(stem)), " ")
	return cases.Title(language.German).String(stem)
}
