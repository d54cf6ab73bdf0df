package timex

import (
	"errors"
	"time"

	"reactor-sys-go/types"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// EpochToDateTime converts Unix seconds to a calendar DateTime.
// UTC-based civil conversion, no leap seconds; any offset (timezone,
// DST) must already be folded into epoch. Valid for years 1970..9999.
func EpochToDateTime(epoch int64) types.DateTime {
	if epoch < 0 {
		epoch = 0
	}
	secs := epoch % 86400
	days := epoch / 86400

	y, m, d := civilFromDays(days)
	return types.DateTime{
		Year:   uint16(y),
		Month:  uint8(m),
		Day:    uint8(d),
		Hour:   uint8(secs / 3600),
		Minute: uint8(secs / 60 % 60),
		Second: uint8(secs % 60),
	}
}

// DateTimeToEpoch is the inverse conversion, UTC-based like
// EpochToDateTime.
func DateTimeToEpoch(dt types.DateTime) int64 {
	days := daysFromCivil(int64(dt.Year), int64(dt.Month), int64(dt.Day))
	return days*86400 + int64(dt.Hour)*3600 + int64(dt.Minute)*60 + int64(dt.Second)
}

// civilFromDays maps days since 1970-01-01 to y/m/d (proleptic
// Gregorian, era-based integer arithmetic).
func civilFromDays(z int64) (int64, int64, int64) {
	z += 719468
	era := z / 146097
	doe := z - era*146097                                  // [0, 146096]
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365 // [0, 399]
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100) // [0, 365]
	mp := (5*doy + 2) / 153                  // [0, 11]
	d := doy - (153*mp+2)/5 + 1              // [1, 31]
	m := mp + 3
	if m > 12 {
		m -= 12
		y++
	}
	return y, m, d
}

// daysFromCivil is the inverse of civilFromDays.
func daysFromCivil(y, m, d int64) int64 {
	if m <= 2 {
		y--
	}
	era := y / 400
	yoe := y - era*400
	var mp int64
	if m > 2 {
		mp = m - 3
	} else {
		mp = m + 9
	}
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// ParseTZOffset parses a "+HH:MM" / "-HH:MM" timezone string into a
// second offset. The sign applies to both components, so "-05:30"
// yields -(5h30m).
func ParseTZOffset(s string) (int, error) {
	if len(s) < 4 {
		return 0, errors.New("short timezone string")
	}
	neg := false
	i := 0
	switch s[0] {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	}
	h, n := atoi2(s[i:])
	if n == 0 {
		return 0, errors.New("bad timezone hours")
	}
	i += n
	if i >= len(s) || s[i] != ':' {
		return 0, errors.New("missing ':' in timezone")
	}
	i++
	m, n := atoi2(s[i:])
	if n == 0 {
		return 0, errors.New("bad timezone minutes")
	}
	if h > 14 || m > 59 {
		return 0, errors.New("timezone out of range")
	}
	off := h*3600 + m*60
	if neg {
		off = -off
	}
	return off, nil
}

// atoi2 reads up to two leading digits, returning value and count.
func atoi2(s string) (int, int) {
	v, n := 0, 0
	for n < len(s) && n < 2 && s[n] >= '0' && s[n] <= '9' {
		v = v*10 + int(s[n]-'0')
		n++
	}
	return v, n
}
