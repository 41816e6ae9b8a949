package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MaxDurationMinutes is the longest outage a single record may describe.
const MaxDurationMinutes = 24 * 60

// DurationFormatHint lists the accepted duration spellings and is attached
// to ErrInvalidFormat so callers can show it next to the input.
const DurationFormatHint = "use 2h30, 2h, 30m, 90min, 2.5h or 120"

// Strict write-path grammar, tried in order. The first pattern that matches
// decides the interpretation.
var (
	hoursMinutesPattern = regexp.MustCompile(`(?i)^(\d+)h\s*(\d+)m?$`)
	hoursPattern        = regexp.MustCompile(`(?i)^(\d+)h$`)
	minutesPattern      = regexp.MustCompile(`(?i)^(\d+)m(?:in)?$`)
	minutosPattern      = regexp.MustCompile(`(?i)^(\d+)\s*min(?:utos?)?$`)
	decimalHoursPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)h$`)
	bareMinutesPattern  = regexp.MustCompile(`^(\d+)$`)
)

// Lenient read-path extractors for stored values.
var (
	storedHoursPattern   = regexp.MustCompile(`(\d+)h`)
	storedMinutesPattern = regexp.MustCompile(`(\d+)m`)
)

// errOverflow marks integer literals too large to represent.
var errOverflow = errors.New("integer overflow")

// ParseDuration converts free-form user input into whole minutes.
//
// Accepted forms, case-insensitive and ignoring surrounding whitespace:
//
//	2h30, 2h 30m   hours and minutes (minutes must be below 60)
//	2h             whole hours
//	30m, 30min     minutes
//	90 minutos     minutes, long suffix
//	1.5h           decimal hours, rounded to the nearest minute
//	120            bare minutes
//
// The result must lie in 1..MaxDurationMinutes.
func ParseDuration(input string) (int, error) {
	s := strings.TrimSpace(input)

	minutes, err := matchDuration(s)
	if err != nil {
		if errors.Is(err, errOverflow) {
			return 0, fmt.Errorf("%w: %q", ErrDurationTooLong, input)
		}
		return 0, err
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNonPositiveDuration, input)
	}
	if minutes > MaxDurationMinutes {
		return 0, fmt.Errorf("%w: %q", ErrDurationTooLong, input)
	}
	return minutes, nil
}

func matchDuration(s string) (int, error) {
	if m := hoursMinutesPattern.FindStringSubmatch(s); m != nil {
		h, err := atoi(m[1])
		if err != nil {
			return 0, err
		}
		mins, err := atoi(m[2])
		if err != nil {
			return 0, err
		}
		if mins >= 60 {
			return 0, invalidFormat(s)
		}
		if h > MaxDurationMinutes {
			return 0, errOverflow
		}
		return h*60 + mins, nil
	}
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		h, err := atoi(m[1])
		if err != nil {
			return 0, err
		}
		if h > MaxDurationMinutes {
			return 0, errOverflow
		}
		return h * 60, nil
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1])
	}
	if m := minutosPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1])
	}
	if m := decimalHoursPattern.FindStringSubmatch(s); m != nil {
		h, err := strconv.ParseFloat(m[1], 64)
		if err != nil || h > MaxDurationMinutes {
			return 0, errOverflow
		}
		return int(math.Round(h * 60)), nil
	}
	if m := bareMinutesPattern.FindStringSubmatch(s); m != nil {
		return atoi(m[1])
	}
	return 0, invalidFormat(s)
}

// atoi parses a digit run. Values that do not fit are reported as overflow.
func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errOverflow
	}
	return n, nil
}

func invalidFormat(s string) error {
	return fmt.Errorf("%w: %q (%s)", ErrInvalidFormat, s, DurationFormatHint)
}

// FormatDuration renders minutes in canonical form: "45m", "2h" or "2h 30m".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// NormalizeDuration parses user input and returns its canonical form.
// Normalizing a canonical value returns it unchanged.
func NormalizeDuration(input string) (string, error) {
	minutes, err := ParseDuration(input)
	if err != nil {
		return "", err
	}
	return FormatDuration(minutes), nil
}

// DurationMinutes extracts minutes from a stored duration. It never fails:
// it takes the first "<n>h" and the first "<n>m" it finds and treats
// anything missing as zero.
func DurationMinutes(stored string) int {
	total := 0
	if m := storedHoursPattern.FindStringSubmatch(stored); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil {
			total += h * 60
		}
	}
	if m := storedMinutesPattern.FindStringSubmatch(stored); m != nil {
		if mins, err := strconv.Atoi(m[1]); err == nil {
			total += mins
		}
	}
	return total
}

// Impact is a coarse label used for user-facing hints.
type Impact string

const (
	ImpactBrief    Impact = "brief"
	ImpactShort    Impact = "short"
	ImpactModerate Impact = "moderate"
	ImpactLong     Impact = "long"
	ImpactSevere   Impact = "severe"
)

// ImpactForDuration estimates how disruptive an outage of the given length is.
//
//	<30m brief | <1h short | <4h moderate | <8h long | otherwise severe
func ImpactForDuration(minutes int) Impact {
	switch {
	case minutes < 30:
		return ImpactBrief
	case minutes < 60:
		return ImpactShort
	case minutes < 240:
		return ImpactModerate
	case minutes < 480:
		return ImpactLong
	default:
		return ImpactSevere
	}
}
