package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// NextOccurrence evaluates an RFC 5545 recurrence rule against a reference
// instant and returns the first occurrence on or after that instant,
// inclusive. The reference is normalized to midnight in its own location
// before evaluation, so "is the next occurrence today" reduces to a date
// comparison. The zero time means the rule has no further occurrences
// (bounded by COUNT or UNTIL).
func NextOccurrence(rule string, ref time.Time) (time.Time, error) {
	r, err := rrule.StrToRRule(strings.TrimSpace(rule))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrBadRecurrence, rule, err)
	}
	day := midnight(ref)
	r.DTStart(day)
	return r.After(day, true), nil
}

// ValidateRecurrence reports whether a rule parses; used by the editing
// surface so a broken rule never reaches the materializer.
func ValidateRecurrence(rule string) error {
	if _, err := rrule.StrToRRule(strings.TrimSpace(rule)); err != nil {
		return fmt.Errorf("%w %q: %v", ErrBadRecurrence, rule, err)
	}
	return nil
}
