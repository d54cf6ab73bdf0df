package mcp79410

// Register map (timekeeping SRAM block).
const (
	regSec   = 0x00 // bit7 = ST (oscillator start)
	regMin   = 0x01
	regHour  = 0x02 // bit6 = 12/24 format select
	regWkday = 0x03 // bit5 = OSCRUN (ro), bit3 = VBATEN
	regDate  = 0x04
	regMonth = 0x05 // bit5 = LPYR (ro)
	regYear  = 0x06
	regCtrl  = 0x07
)

// Field masks.
const (
	maskSec   = 0x7F
	maskMin   = 0x7F
	maskHour  = 0x3F
	maskWkday = 0x07
	maskDate  = 0x3F
	maskMonth = 0x1F

	bitST     = 0x80 // in regSec
	bit1224   = 0x40 // in regHour
	bitOSCRUN = 0x20 // in regWkday
	bitVBATEN = 0x08 // in regWkday
)

// AddressDefault is the fixed RTCC slave address of the MCP79410.
const AddressDefault uint16 = 0x6F
