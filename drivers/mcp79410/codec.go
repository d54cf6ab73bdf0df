package mcp79410

// BCD helpers.

func bcdToDec(b byte) uint8 { return (b>>4)*10 + (b & 0x0F) }

func decToBCD(v uint8) byte { return (v/10)<<4 | (v % 10) }

// weekday returns 1..7 (1 = Monday) via days since the epoch, which
// was a Thursday. Only used when the caller leaves Weekday zero.
func weekday(year uint16, month, day uint8) uint8 {
	d := daysFromCivil(int64(year), int64(month), int64(day))
	// 1970-01-01 (day 0) was a Thursday = weekday 4.
	return uint8((d+3)%7) + 1
}

// daysFromCivil maps y/m/d to days since 1970-01-01 (proleptic
// Gregorian, era-based integer arithmetic).
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
