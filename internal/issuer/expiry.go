package issuer

import (
	"strconv"
	"strings"
	"time"

	"rolelink/entity"
	"rolelink/lib/clock"
)

// MaxRelativeExpiry bounds relative expiries such as "36500d".
const MaxRelativeExpiry = 36500 * 24 * time.Hour

// Expiry is a parsed expiry: the display string and the authoritative Unix time.
type Expiry struct {
	Display string
	Unix    int64
}

// ParseExpiry accepts "Nd", "Nh", "Nm" relative to now, or an absolute
// "YYYY-MM-DD" (23:59 that day) or "YYYY-MM-DD HH:MM" in the fixed UTC+9 zone.
// An empty input means no expiry and returns nil.
func ParseExpiry(input string, now time.Time) (*Expiry, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	var at time.Time
	if unit, ok := relativeUnit(input); ok {
		n, err := strconv.Atoi(input[:len(input)-1])
		if err != nil || n <= 0 {
			return nil, &entity.ValidationError{Value: input, Reason: "expected a positive number before d, h or m"}
		}
		if int64(n) > int64(MaxRelativeExpiry/unit) {
			return nil, &entity.ValidationError{Value: input, Reason: "expiry is more than 36500 days away"}
		}
		at = clock.Local(now).Add(time.Duration(n) * unit)
	} else {
		var err error
		switch len(input) {
		case len("2006-01-02 15:04"):
			at, err = clock.ParseMinutes(input)
		case len("2006-01-02"):
			at, err = clock.ParseMinutes(input + " 23:59")
		default:
			return nil, &entity.ValidationError{Value: input, Reason: "expected 7d, 24h, 30m, YYYY-MM-DD or YYYY-MM-DD HH:MM"}
		}
		if err != nil {
			return nil, &entity.ValidationError{Value: input, Reason: "malformed date"}
		}
	}

	return &Expiry{
		Display: clock.Minutes(at),
		Unix:    at.Unix(),
	}, nil
}

func relativeUnit(input string) (time.Duration, bool) {
	switch input[len(input)-1] {
	case 'd':
		return 24 * time.Hour, true
	case 'h':
		return time.Hour, true
	case 'm':
		return time.Minute, true
	}
	return 0, false
}
