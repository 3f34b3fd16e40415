// Package match scores how well claimed submission fields are corroborated
// by the text extracted from a document. All scoring is pure computation on
// normalized strings; scores are continuous in [0,1] and a field with no
// claimed value is omitted from the results rather than scored zero.
package match

import (
	"strings"
	"unicode/utf8"
)

// FieldKind names a matched field. The values double as the component name
// prefixes used in serialized confidence scores.
type FieldKind string

const (
	FieldName        FieldKind = "student_name"
	FieldRollNumber  FieldKind = "student_roll"
	FieldInstitution FieldKind = "institution"
	FieldSkill       FieldKind = "skill"
)

// descriptionSeparator splits "Institution - Skill" descriptions. The
// spaced form is deliberate: splitting on any hyphen would break course
// codes and hyphenated names inside either side.
const descriptionSeparator = " - "

// minTokenLength is the shortest claimed token that is searched for.
// Shorter fragments (initials, articles) match almost any text and would
// inflate scores.
const minTokenLength = 3

// Fields carries the claimed values to corroborate against the document.
type Fields struct {
	Name        string // claimed full name
	RollNumber  string // claimed roll/identifier, binary matched
	Skill       string // claimed skill or achievement label
	Description string // free text following the "Institution - Skill" convention
}

// Result is one field's match outcome.
type Result struct {
	Field   FieldKind
	Score   float64 // in [0,1]
	Matched int     // tokens found in the extracted text
	Total   int     // tokens considered
}

// Match scores every claimed field against the extracted text. Fields whose
// claimed value is empty or tokenizes to nothing are absent from the result.
// Scores depend only on token presence, never on token order.
func Match(extracted string, fields Fields) []Result {
	text := Fold(extracted)
	results := make([]Result, 0, 4)

	if r, ok := matchName(text, fields.Name); ok {
		results = append(results, r)
	}
	if r, ok := matchRoll(extracted, fields.RollNumber); ok {
		results = append(results, r)
	}

	institution, skill := splitDescription(fields.Description, fields.Skill)
	if r, ok := matchTokens(FieldInstitution, text, institution); ok {
		results = append(results, r)
	}
	if r, ok := matchTokens(FieldSkill, text, skill); ok {
		results = append(results, r)
	}

	return results
}

// matchName scores name parts individually. Parts at or under two
// characters are never searched (they would match almost anything) but stay
// in the denominator, so "J Michael Doe" can score at most 2/3.
func matchName(foldedText, name string) (Result, bool) {
	parts := strings.Fields(Fold(name))
	if len(parts) == 0 {
		return Result{}, false
	}

	matched := 0
	for _, part := range parts {
		if utf8.RuneCountInString(part) >= minTokenLength && strings.Contains(foldedText, part) {
			matched++
		}
	}

	return Result{
		Field:   FieldName,
		Score:   float64(matched) / float64(len(parts)),
		Matched: matched,
		Total:   len(parts),
	}, true
}

// matchRoll is binary: identifiers have no partial-match semantics. Both
// sides are cleaned of whitespace, hyphens and underscores so "CS-101"
// matches "cs 101" and "CS_101" alike.
func matchRoll(extracted, roll string) (Result, bool) {
	cleanedRoll := cleanIdentifier(roll)
	if cleanedRoll == "" {
		return Result{}, false
	}

	score := 0.0
	matched := 0
	if strings.Contains(cleanIdentifier(extracted), cleanedRoll) {
		score = 1.0
		matched = 1
	}

	return Result{Field: FieldRollNumber, Score: score, Matched: matched, Total: 1}, true
}

// matchTokens scores the fraction of claimed tokens found as substrings in
// the extracted text. Tokens under the length floor are dropped entirely; a
// value with no usable tokens omits the field.
func matchTokens(kind FieldKind, foldedText, value string) (Result, bool) {
	tokens := tokenize(value)
	if len(tokens) == 0 {
		return Result{}, false
	}

	matched := 0
	for _, tok := range tokens {
		if strings.Contains(foldedText, tok) {
			matched++
		}
	}

	return Result{
		Field:   kind,
		Score:   float64(matched) / float64(len(tokens)),
		Matched: matched,
		Total:   len(tokens),
	}, true
}

// splitDescription derives the institution and skill claims. The text
// before the first " - " is the institution; the text after it overrides
// the skill label. Without the separator only the label is claimed.
func splitDescription(description, skillLabel string) (institution, skill string) {
	if idx := strings.Index(description, descriptionSeparator); idx >= 0 {
		return description[:idx], description[idx+len(descriptionSeparator):]
	}
	return "", skillLabel
}

func tokenize(s string) []string {
	fields := strings.Fields(Fold(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
