package types

// ---- Wall-clock time ----

// DateTime is the single wall-clock representation shared across both
// cores. No timezone is stored; offsets are applied before conversion.
type DateTime struct {
	Year   uint16 // 4-digit
	Month  uint8  // 1..12
	Day    uint8  // 1..31
	Hour   uint8  // 0..23
	Minute uint8  // 0..59
	Second uint8  // 0..59
}

func (d DateTime) Equal(o DateTime) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day &&
		d.Hour == o.Hour && d.Minute == o.Minute && d.Second == o.Second
}

func (d DateTime) IsZero() bool { return d == DateTime{} }

// String renders "YYYY-MM-DD hh:mm:ss" without pulling in fmt.
func (d DateTime) String() string {
	var b [19]byte
	pad4(b[0:4], d.Year)
	b[4] = '-'
	pad2(b[5:7], d.Month)
	b[7] = '-'
	pad2(b[8:10], d.Day)
	b[10] = ' '
	pad2(b[11:13], d.Hour)
	b[13] = ':'
	pad2(b[14:16], d.Minute)
	b[16] = ':'
	pad2(b[17:19], d.Second)
	return string(b[:])
}

func pad2(dst []byte, v uint8) {
	dst[0] = '0' + v/10
	dst[1] = '0' + v%10
}

func pad4(dst []byte, v uint16) {
	dst[0] = '0' + byte(v/1000%10)
	dst[1] = '0' + byte(v/100%10)
	dst[2] = '0' + byte(v/10%10)
	dst[3] = '0' + byte(v%10)
}

// ---- Indicator LEDs ----

type Colour uint32

const (
	ColourGreen  Colour = 0x00FF00
	ColourYellow Colour = 0xFFFF00
	ColourRed    Colour = 0xFF0000
	ColourBlue   Colour = 0x0000FF
	ColourOrange Colour = 0xFFA500
	ColourOff    Colour = 0x000000
)

// Status colours by meaning.
const (
	ColourStartup = ColourOrange
	ColourOK      = ColourGreen
	ColourError   = ColourRed
	ColourWarning = ColourYellow
	ColourBusy    = ColourBlue
)

// Indicator slots (fixed strip of four).
const (
	LEDMQTT      = 0
	LEDWebServer = 1
	LEDModbus    = 2
	LEDSystem    = 3

	LEDCount = 4
)

// ---- Device health ----

// Status mirrors the supervised hardware state: three power rails with
// their in-range flags, plus the four indicator colours. A flag is true
// iff the most recent averaged reading fell inside the rail's band.
type Status struct {
	VPSU float32 // 24 V supply rail
	V20  float32
	V5   float32

	PSUOK bool
	V20OK bool
	V5OK  bool

	LED [LEDCount]Colour
}

// ---- Link state ----

// Link is the derived state of the network interface, evaluated each
// control-loop iteration. Degraded means the link is physically up but
// the last configuration attempt failed.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)
