package service

import "time"

// Clock supplies the current instant. Injectable so materialization and
// cadence decisions are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewClock returns a Clock reporting wall time in the given location.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// midnight truncates t to the start of its calendar day.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
