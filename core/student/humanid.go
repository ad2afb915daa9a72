package student

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// subjectCodes maps a batch subject to the 3-letter course code used in human
// IDs. Lookup is case-insensitive; unknown subjects fall back to their first
// three alphanumeric characters, then to genericCode.
var subjectCodes = map[string]string{
	"mathematics": "MTH",
	"maths":       "MTH",
	"math":        "MTH",
	"physics":     "PHY",
	"chemistry":   "CHM",
	"biology":     "BIO",
	"science":     "SCI",
	"english":     "ENG",
	"hindi":       "HIN",
	"computer":    "CMP",
	"computers":   "CMP",
	"commerce":    "COM",
	"accounts":    "ACC",
	"accountancy": "ACC",
	"economics":   "ECO",
}

const genericCode = "GEN"

// CourseCode derives the 3-letter course code for a batch subject.
func CourseCode(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return genericCode
	}
	if code, ok := subjectCodes[strings.ToLower(subject)]; ok {
		return code
	}

	var b strings.Builder
	for _, r := range subject {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == 3 {
				return b.String()
			}
		}
	}
	if b.Len() > 0 {
		return b.String()
	}
	return genericCode
}

// counterPrefix computes the `<CODE><YY>` counter scope for a batch.
// YY comes from the batch's academic-year start date, falling back to `now`
// when the batch does not carry one.
func counterPrefix(batch Batch, now time.Time) string {
	year := now.Year()
	if !batch.StartDate.IsZero() {
		year = batch.StartDate.Year()
	}
	return fmt.Sprintf("%s%02d", CourseCode(batch.Subject), year%100)
}

// formatHumanID renders the final ID, e.g. MTH26007.
func formatHumanID(prefix string, seq int) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}
