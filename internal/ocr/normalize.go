package ocr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reLineSpace = regexp.MustCompile(`\s+`)
	reBoxNoise  = regexp.MustCompile(`^[_\-|=~]{3,}$`)
	zeroWidth   = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")
)

// NormalizeLine folds compatibility characters (full-width digits, ligatures)
// with NFKC, drops zero-width runes and semicolons, collapses whitespace and
// discards box-drawing rules. The result may be empty.
func NormalizeLine(s string) string {
	s = norm.NFKC.String(s)
	s = zeroWidth.Replace(s)
	s = strings.ReplaceAll(s, ";", " ")
	s = strings.TrimSpace(reLineSpace.ReplaceAllString(s, " "))
	if reBoxNoise.MatchString(s) {
		return ""
	}
	return s
}
