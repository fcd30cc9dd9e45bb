package clock

import (
	"time"
)

const (
	// DisplayZoneName is appended to every human-readable timestamp.
	DisplayZoneName = "JST"

	layoutMinute = "2006-01-02 15:04"
	layoutSecond = "2006-01-02 15:04:05"
)

// Zone is the fixed UTC+9 offset used for both parsing and display
var Zone = time.FixedZone(DisplayZoneName, 9*60*60)

// Local converts t to the display zone.
func Local(t time.Time) time.Time {
	return t.In(Zone)
}

// Minutes formats t as "2006-01-02 15:04 JST".
func Minutes(t time.Time) string {
	return Local(t).Format(layoutMinute) + " " + DisplayZoneName
}

// Seconds formats t as "2006-01-02 15:04:05 JST".
func Seconds(t time.Time) string {
	return Local(t).Format(layoutSecond) + " " + DisplayZoneName
}

// ParseMinutes parses "2006-01-02 15:04" in the display zone.
func ParseMinutes(value string) (time.Time, error) {
	return time.ParseInLocation(layoutMinute, value, Zone)
}
