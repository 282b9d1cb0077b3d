package detect

import (
	"regexp"
	"strings"

	"github.com/rezonia/fattura-processor/internal/model"
)

var (
	// comments and the doctype may hold markup that is not the root element
	prolog = regexp.MustCompile(`(?s)<!--.*?-->|<!DOCTYPE(?:[^\[>]|\[.*?\])*>`)

	// first start tag that is not a declaration or processing instruction
	rootTag       = regexp.MustCompile(`<[A-Za-z_][^>]*>`)
	versioneValue = regexp.MustCompile(`\bversione\s*=\s*["']([^"']+)["']`)
)

// Versione extracts the versione attribute of the root element by scanning
// the text. Documents that failed schema validation are not trusted to parse
// into a usable tree, so no XML parser is involved.
func Versione(raw string) (string, bool) {
	scope := prolog.ReplaceAllString(raw, "")
	if tag := rootTag.FindString(scope); tag != "" {
		scope = tag
	}
	m := versioneValue.FindStringSubmatch(scope)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ClassifyVersione maps a versione value to a sub-type, case-insensitively by
// prefix: FSM is Semplificata, FPR and FPA are Ordinaria
func ClassifyVersione(versione string) (model.SubType, bool) {
	v := strings.ToUpper(strings.TrimSpace(versione))
	switch {
	case v == "":
		return model.Undetermined, false
	case strings.HasPrefix(v, "FSM"):
		return model.Semplificata, true
	case strings.HasPrefix(v, "FPR"), strings.HasPrefix(v, "FPA"):
		return model.Ordinaria, true
	default:
		return model.Undetermined, false
	}
}
