// Package sanitizer cleans generated code before it is handed to the preview
// sandbox. Cleaning is textual and best-effort; the sandbox remains the outer
// boundary.
package sanitizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinLength is the shortest cleaned output, in characters, accepted as code
const MinLength = 50

var (
	ErrEmptyInput = errors.New("code must be a non-empty string")
	ErrTooShort   = errors.New("sanitized code is too short - generation may have failed")
)

// Error reports why generated code could not be used
type Error struct {
	Reason string
	Length int
	Err    error
}

func (e *Error) Error() string {
	if e.Length > 0 {
		return fmt.Sprintf("sanitization failed: %s (%d characters)", e.Reason, e.Length)
	}
	return "sanitization failed: " + e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Rule names reported by SanitizeWithReport
const (
	RuleFence    = "fence"
	RuleImport   = "import"
	RuleRequire  = "require"
	RuleExport   = "export"
	RuleEval     = "eval"
	RuleFunction = "function_constructor"
	RuleStorage  = "storage"
	RuleFetch    = "fetch"
	RuleXHR      = "xhr"
)

type rule struct {
	name    string
	pattern *regexp.Regexp
	replace string
}

const stmtEnd = `[ \t]*;?[ \t]*(?:\r?\n)?`

// rules run in order. Call openers are replaced with a bare parenthesis so the
// arguments stay a harmless expression instead of breaking the script. Storage
// and fetch match anywhere, including inside longer identifiers, so the
// cleaned text never contains them at all.
var rules = []rule{
	{RuleFence, regexp.MustCompile("```[\\w+#.-]*[ \\t]*(?:\\r?\\n)?"), ""},

	{RuleImport, regexp.MustCompile(`\bimport\s*(?:[\w$]+\s*,\s*)?\{[^}]*\}\s*from\s*['"][^'"\n]*['"]` + stmtEnd), ""},
	{RuleImport, regexp.MustCompile(`\bimport\b[\w$*{},\s]*?\bfrom\b\s*(?:['"][^'"\n]*['"])?` + stmtEnd), ""},
	{RuleImport, regexp.MustCompile(`\bimport\s*['"][^'"\n]*['"]` + stmtEnd), ""},
	{RuleImport, regexp.MustCompile(`\bimport\s*\([^()\n]*\)`), ""},

	{RuleRequire, regexp.MustCompile(`\b(?:const|let|var)\s+(?:[\w$]+|\{[^}]*\})\s*=\s*require\s*\([^)\n]*\)` + stmtEnd), ""},
	{RuleRequire, regexp.MustCompile(`\brequire\s*\([^)\n]*\)`), ""},

	{RuleExport, regexp.MustCompile(`\bexport\s+default\s+`), ""},
	{RuleExport, regexp.MustCompile(`\bexport\s*\{[^}]*\}(?:\s*from\s*['"][^'"\n]*['"])?` + stmtEnd), ""},
	{RuleExport, regexp.MustCompile(`\bexport\s*\*[^;\n]*` + stmtEnd), ""},
	{RuleExport, regexp.MustCompile(`\bexport\s+((?:async\s+)?function|class|const|let|var)\b`), "$1"},

	{RuleEval, regexp.MustCompile(`\beval\s*\(`), "("},
	{RuleFunction, regexp.MustCompile(`\bFunction\s*\(`), "("},
	{RuleStorage, regexp.MustCompile(`(?:localStorage|sessionStorage)\.?`), ""},
	{RuleFetch, regexp.MustCompile(`fetch\s*\(`), "("},
	{RuleXHR, regexp.MustCompile(`\bXMLHttpRequest\b`), ""},
}

// Report counts removals per rule
type Report map[string]int

// Sanitize returns code with fences, module syntax, dynamic evaluation,
// storage access and network calls removed. Sanitize(Sanitize(x)) equals
// Sanitize(x) for every accepted x.
func Sanitize(code string) (string, error) {
	cleaned, _, err := SanitizeWithReport(code)
	return cleaned, err
}

// SanitizeWithReport is Sanitize that also reports how many matches each rule
// removed.
func SanitizeWithReport(code string) (string, Report, error) {
	report := Report{}
	if strings.TrimSpace(code) == "" {
		return "", report, &Error{Reason: "empty input", Err: ErrEmptyInput}
	}

	// Every match is non-empty and its replacement strictly shorter, so the
	// loop ends once no rule matches.
	cleaned := code
	for {
		changed := false
		for _, r := range rules {
			n := len(r.pattern.FindAllStringIndex(cleaned, -1))
			if n == 0 {
				continue
			}
			cleaned = r.pattern.ReplaceAllString(cleaned, r.replace)
			report[r.name] += n
			changed = true
		}
		if !changed {
			break
		}
	}

	cleaned = strings.TrimSpace(cleaned)
	if n := utf8.RuneCountInString(cleaned); n < MinLength {
		return "", report, &Error{Reason: "output too short", Length: n, Err: ErrTooShort}
	}
	return cleaned, report, nil
}

// IsSanitizationError reports whether err came from the sanitizer
func IsSanitizationError(err error) bool {
	var serr *Error
	return errors.As(err, &serr)
}
