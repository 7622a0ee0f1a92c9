package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCadence(t *testing.T) {
	t.Parallel()

	pairs, err := ParseCadence("0s=1d; 2d=12h; 4d=4h")
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, CadencePair{Threshold: 0, Interval: 24 * time.Hour}, pairs[0])
	assert.Equal(t, CadencePair{Threshold: 48 * time.Hour, Interval: 12 * time.Hour}, pairs[1])
	assert.Equal(t, CadencePair{Threshold: 96 * time.Hour, Interval: 4 * time.Hour}, pairs[2])
}

func TestParseCadence_Empty(t *testing.T) {
	t.Parallel()

	pairs, err := ParseCadence("")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestParseCadence_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		spec string
	}{
		{"missing interval", "0s"},
		{"bad threshold", "soon=1d"},
		{"bad interval", "0s=whenever"},
		{"duplicate threshold", "0s=1d; 0s=2d"},
		{"zero interval", "1d=0s"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseCadence(tc.spec)
			assert.ErrorIs(t, err, ErrBadCadence, "spec %q", tc.spec)
		})
	}
}

func TestParseHumanDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
	}{
		{"0s", 0},
		{"30s", 30 * time.Second},
		{"90m", 90 * time.Minute},
		{"12h", 12 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1w2d", 9 * 24 * time.Hour},
		{"1.5h", 90 * time.Minute},
	}
	for _, tc := range cases {
		got, err := parseHumanDuration(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "d", "5x", "1h2"} {
		_, err := parseHumanDuration(bad)
		assert.Error(t, err, bad)
	}
}

// The escalation scenario from the reminder design: {0s:1d, 2d:12h, 4d:4h}.
// As elapsed time crosses thresholds, the minimum over the eligible pairs can
// only shrink.
func TestRequiredInterval_Escalation(t *testing.T) {
	t.Parallel()

	pairs, err := ParseCadence("0s=1d; 2d=12h; 4d=4h")
	require.NoError(t, err)

	day := 24 * time.Hour
	assert.Equal(t, day, RequiredInterval(pairs, 1*day), "only the 0s threshold is active")
	assert.Equal(t, 12*time.Hour, RequiredInterval(pairs, 3*day), "0s and 2d active, min(1d,12h)")
	assert.Equal(t, 4*time.Hour, RequiredInterval(pairs, 5*day), "all active, min(1d,12h,4h)")
}

func TestRequiredInterval_Monotonic(t *testing.T) {
	t.Parallel()

	pairs, err := ParseCadence("0s=1d; 2d=12h; 4d=4h; 1w=1h")
	require.NoError(t, err)

	prev := neverInterval
	for elapsed := time.Duration(0); elapsed <= 10*24*time.Hour; elapsed += time.Hour {
		cur := RequiredInterval(pairs, elapsed)
		assert.LessOrEqual(t, cur, prev, "interval grew at elapsed=%s", elapsed)
		prev = cur
	}
}

func TestRequiredInterval_NoPairs(t *testing.T) {
	t.Parallel()

	// Only the implicit zero-threshold pair: effectively never remind.
	assert.Equal(t, neverInterval, RequiredInterval(nil, 30*24*time.Hour))
}

func TestRequiredInterval_NegativeElapsed(t *testing.T) {
	t.Parallel()

	// An instance due in the future passes no threshold; the general law
	// handles it without a special case.
	pairs, err := ParseCadence("0s=1d; 2d=12h")
	require.NoError(t, err)
	assert.Equal(t, neverInterval, RequiredInterval(pairs, -time.Hour))
	assert.Equal(t, neverInterval, RequiredInterval(pairs, 0))
}
