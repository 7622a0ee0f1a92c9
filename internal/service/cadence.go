package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// neverInterval stands in for "no reminder yet": an interval so long it can
// never be exceeded by a realistic reminder gap.
const neverInterval = 100 * 365 * 24 * time.Hour

// CadencePair maps elapsed time past due to the reminder interval required
// once that threshold has been crossed.
type CadencePair struct {
	Threshold time.Duration
	Interval  time.Duration
}

// ParseCadence parses a cadence spec of the form "0s=1d; 2d=12h; 4d=4h".
// An empty spec is valid and yields no pairs (the schedule then behaves like
// the implicit zero-threshold pair alone and never escalates).
func ParseCadence(spec string) ([]CadencePair, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var pairs []CadencePair
	seen := make(map[time.Duration]bool)
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: entry %q is not threshold=interval", ErrBadCadence, entry)
		}
		threshold, err := parseHumanDuration(parts[0])
		if err != nil {
			return nil, fmt.Errorf("%w: threshold in %q: %v", ErrBadCadence, entry, err)
		}
		interval, err := parseHumanDuration(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: interval in %q: %v", ErrBadCadence, entry, err)
		}
		if interval <= 0 {
			return nil, fmt.Errorf("%w: interval in %q must be positive", ErrBadCadence, entry)
		}
		if seen[threshold] {
			return nil, fmt.Errorf("%w: duplicate threshold in %q", ErrBadCadence, entry)
		}
		seen[threshold] = true
		pairs = append(pairs, CadencePair{Threshold: threshold, Interval: interval})
	}
	return pairs, nil
}

// RequiredInterval applies the cadence lookup law: of the pairs whose
// threshold is strictly less than the elapsed time, plus the implicit
// {0, neverInterval} pair, the minimum interval wins. Crossing more
// thresholds can only shrink the result, which gives monotonic escalation.
// Negative elapsed time passes no threshold and therefore never fires.
func RequiredInterval(pairs []CadencePair, elapsed time.Duration) time.Duration {
	required := neverInterval
	for _, p := range pairs {
		if p.Threshold < elapsed && p.Interval < required {
			required = p.Interval
		}
	}
	return required
}

// parseHumanDuration extends time.ParseDuration's units with days ("d") and
// weeks ("w"), e.g. "1d", "12h", "1w2d", "1.5h".
func parseHumanDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var total time.Duration
	i := 0
	for i < len(s) {
		j := i
		for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
			j++
		}
		if j == i {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		value, err := strconv.ParseFloat(s[i:j], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %v", s, err)
		}
		k := j
		for k < len(s) && (s[k] < '0' || s[k] > '9') && s[k] != '.' {
			k++
		}
		unit, ok := durationUnits[s[j:k]]
		if !ok {
			return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, s[j:k])
		}
		total += time.Duration(value * float64(unit))
		i = k
	}
	return total, nil
}

var durationUnits = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
	"w":  7 * 24 * time.Hour,
}
