// Package consensus decides whether a reviewer's free-text answer agrees with
// the proposal it reviewed.
//
// The heuristic is intentionally shallow: lower-cased substring matching over
// fixed keyword lists, then a handful of regular expressions. Keyword lists and
// the objection threshold are product behavior and must not drift.
package consensus

import (
	"regexp"
	"strings"
)

// MaxObjections is the number of distinct objection keywords at which a
// keyword-level agreement is overruled.
const MaxObjections = 2

// AgreementKeywords signal agreement when present anywhere in the text.
var AgreementKeywords = []string{
	"consensus",
	"d'accord",
	"agree",
	"parfait",
	"excellent",
	"je suis d'accord",
	"c'est une bonne approche",
}

// ObjectionKeywords are counted once each, however often they occur.
var ObjectionKeywords = []string{
	"mais",
	"cependant",
	"toutefois",
	"néanmoins",
	"je suggère",
	"alternative",
	"plutôt",
	"instead",
}

// agreementPatterns express stronger agreement phrasing. They are checked
// only when the keyword test does not already decide agreement.
var agreementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`je.*suis.*d'accord`),
	regexp.MustCompile(`c'est.*parfait`),
	regexp.MustCompile(`excellente.*approche`),
	regexp.MustCompile(`solution.*valide`),
}

// Analysis is the breakdown behind a Detect decision.
type Analysis struct {
	KeywordHit bool     // At least one agreement keyword present
	Objections []string // Distinct objection keywords present, in list order
	PatternHit bool     // An agreement pattern matched (only evaluated when needed)
	Agreed     bool
}

// Analyze runs the agreement heuristic and reports how it decided.
func Analyze(text string) Analysis {
	lowered := strings.ToLower(text)

	var a Analysis
	for _, kw := range AgreementKeywords {
		if strings.Contains(lowered, kw) {
			a.KeywordHit = true
			break
		}
	}

	for _, kw := range ObjectionKeywords {
		if strings.Contains(lowered, kw) {
			a.Objections = append(a.Objections, kw)
		}
	}

	if a.KeywordHit && len(a.Objections) < MaxObjections {
		a.Agreed = true
		return a
	}

	for _, p := range agreementPatterns {
		if p.MatchString(lowered) {
			a.PatternHit = true
			a.Agreed = true
			return a
		}
	}

	return a
}

// Detect reports whether text reads as agreement.
func Detect(text string) bool {
	return Analyze(text).Agreed
}
