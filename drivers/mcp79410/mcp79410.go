// Package mcp79410 drives the Microchip MCP79410 I2C real-time clock.
// Timekeeping only: the EEPROM block and alarms are not exposed.
package mcp79410

import (
	"errors"

	"tinygo.org/x/drivers"
)

var (
	ErrBadTime    = errors.New("time fields out of range")
	ErrOscStopped = errors.New("oscillator not running")
)

// Time is one calendar reading. Year is the full 4-digit year; the
// chip stores two digits, so the valid span is 2000..2099.
type Time struct {
	Year    uint16
	Month   uint8 // 1..12
	Day     uint8 // 1..31
	Weekday uint8 // 1..7, chip convention is free-running
	Hour    uint8 // 0..23 (driver forces 24 h mode)
	Minute  uint8 // 0..59
	Second  uint8 // 0..59
}

// Config for Configure.
type Config struct {
	Address uint16 // 0 means AddressDefault
	VBATEN  bool   // keep time on backup battery
}

// Device is an MCP79410 on an I2C bus.
type Device struct {
	bus    drivers.I2C
	addr   uint16
	vbaten bool
}

func New(bus drivers.I2C) Device {
	return Device{bus: bus, addr: AddressDefault}
}

// Configure applies cfg and starts the oscillator if it is stopped,
// preserving the stored time.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.addr = cfg.Address
	}
	d.vbaten = cfg.VBATEN

	sec, err := d.readReg(regSec)
	if err != nil {
		return err
	}
	if sec&bitST == 0 {
		if err := d.writeReg(regSec, sec|bitST); err != nil {
			return err
		}
	}
	if d.vbaten {
		wk, err := d.readReg(regWkday)
		if err != nil {
			return err
		}
		if wk&bitVBATEN == 0 {
			if err := d.writeReg(regWkday, wk|bitVBATEN); err != nil {
				return err
			}
		}
	}
	return nil
}

// Running reports whether the oscillator is ticking.
func (d *Device) Running() (bool, error) {
	wk, err := d.readReg(regWkday)
	if err != nil {
		return false, err
	}
	return wk&bitOSCRUN != 0, nil
}

// ReadTime returns the current time. The seven timekeeping registers
// are fetched in one transaction; the chip latches them against
// rollover during the burst read.
func (d *Device) ReadTime() (Time, error) {
	var buf [7]byte
	if err := d.bus.Tx(d.addr, []byte{regSec}, buf[:]); err != nil {
		return Time{}, err
	}
	return Time{
		Second:  bcdToDec(buf[regSec] & maskSec),
		Minute:  bcdToDec(buf[regMin] & maskMin),
		Hour:    bcdToDec(buf[regHour] & maskHour),
		Weekday: buf[regWkday] & maskWkday,
		Day:     bcdToDec(buf[regDate] & maskDate),
		Month:   bcdToDec(buf[regMonth] & maskMonth),
		Year:    2000 + uint16(bcdToDec(buf[regYear])),
	}, nil
}

// SetTime writes t to the chip. The ST and VBATEN bits are reasserted
// inside the same burst so the oscillator never observes a stop.
func (d *Device) SetTime(t Time) error {
	if err := validate(t); err != nil {
		return err
	}
	wk := t.Weekday
	if wk == 0 {
		wk = weekday(t.Year, t.Month, t.Day)
	}
	if d.vbaten {
		wk |= bitVBATEN
	}
	w := [8]byte{
		regSec,
		decToBCD(t.Second) | bitST,
		decToBCD(t.Minute),
		decToBCD(t.Hour), // 24 h: bit1224 left clear
		wk,
		decToBCD(t.Day),
		decToBCD(t.Month),
		decToBCD(uint8(t.Year % 100)),
	}
	return d.bus.Tx(d.addr, w[:], nil)
}

func validate(t Time) error {
	if t.Year < 2000 || t.Year > 2099 ||
		t.Month < 1 || t.Month > 12 ||
		t.Day < 1 || t.Day > 31 ||
		t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
		return ErrBadTime
	}
	return nil
}

func (d *Device) readReg(reg byte) (byte, error) {
	var b [1]byte
	if err := d.bus.Tx(d.addr, []byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Device) writeReg(reg, val byte) error {
	return d.bus.Tx(d.addr, []byte{reg, val}, nil)
}
