//go:build tinygo

// System-MCU firmware entry point for the RP2040 supervisor board.
// Pin assignments follow the board schematic: RTC on I2C1 (GPIO6/7),
// indicator strip data on GPIO19, rail feedback on ADC0..2
// (GPIO26..28), inter-processor UART0 on GPIO16/17.
package main

import (
	"context"
	"image/color"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/ws2812"

	"reactor-sys-go/diag"
	"reactor-sys-go/errcode"
	"reactor-sys-go/services/ipc"
	"reactor-sys-go/services/power"
	"reactor-sys-go/supervise"
	"reactor-sys-go/timed"
	"reactor-sys-go/types"
)

const (
	pinIPCTX = machine.GPIO16
	pinIPCRX = machine.GPIO17
	pinLED   = machine.GPIO19
	pinSDA   = machine.GPIO6
	pinSCL   = machine.GPIO7
)

// ADC scale: 3.3 V reference over the 16-bit normalized reading,
// times the feedback divider of each rail.
const (
	adcVolts = 3.3 / 65535.0
	divPSU   = 11.0
	div20    = 11.0
	div5     = 2.0
)

type adcRails struct {
	psu, v20, v5 machine.ADC
}

func newADCRails() *adcRails {
	machine.InitADC()
	r := &adcRails{
		psu: machine.ADC{Pin: machine.ADC0},
		v20: machine.ADC{Pin: machine.ADC1},
		v5:  machine.ADC{Pin: machine.ADC2},
	}
	r.psu.Configure(machine.ADCConfig{})
	r.v20.Configure(machine.ADCConfig{})
	r.v5.Configure(machine.ADCConfig{})
	return r
}

func (r *adcRails) Read() (power.Rails, error) {
	return power.Rails{
		VPSU: float32(r.psu.Get()) * adcVolts * divPSU,
		V20:  float32(r.v20.Get()) * adcVolts * div20,
		V5:   float32(r.v5.Get()) * adcVolts * div5,
	}, nil
}

// ws2812Strip adapts the strip driver to the indicator contract.
type ws2812Strip struct {
	dev ws2812.Device
	buf [types.LEDCount]color.RGBA
}

func newStrip(pin machine.Pin) *ws2812Strip {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &ws2812Strip{dev: ws2812.NewWS2812(pin)}
}

func (s *ws2812Strip) SetPixel(i int, c types.Colour) {
	s.buf[i] = color.RGBA{R: byte(c >> 16), G: byte(c >> 8), B: byte(c), A: 0xFF}
}

func (s *ws2812Strip) Show() error { return s.dev.WriteColors(s.buf[:]) }

// The Ethernet stack lives in the network firmware layer; until it is
// linked in, the probe reports no link and configuration is a no-op.
type noLink struct{}

func (noLink) LinkUp() bool { return false }

type noConf struct{}

func (noConf) Apply() error { return nil }

type noNetTime struct{}

func (noNetTime) FetchEpoch() (int64, error) { return 0, errcode.NetTimeUnavailable }

type cpuReboot struct{}

func (cpuReboot) Reboot() { machine.CPUReset() }

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	log := diag.New(machine.Serial, diag.LevelInfo)
	log.Infof("boot: system MCU starting")

	if err := machine.I2C1.Configure(machine.I2CConfig{SDA: pinSDA, SCL: pinSCL, Frequency: 400_000}); err != nil {
		log.Errorf("boot: I2C setup failed: %v", err)
	}
	clk, err := timed.NewMCP79410Clock(machine.I2C1, 0)
	if err != nil {
		// Not fatal: reads keep failing until the chip answers and the
		// authority treats each failure as a skipped cycle.
		log.Errorf("boot: RTC setup failed: %v", err)
	}

	cfg := types.DefaultNetworkConfig()

	sys := supervise.New(log, supervise.Hardware{
		Clock:    clk,
		NetTime:  noNetTime{},
		Settings: &cfg,
		Probe:    noLink{},
		Conf:     noConf{},
		Rails:    newADCRails(),
		Strip:    newStrip(pinLED),
		Console:  machine.Serial,
		IPCDial:  ipc.UARTDial(uartx.UART0, 115200, pinIPCTX, pinIPCRX),
		Reboot:   cpuReboot{},
	}, supervise.Config{})

	sys.Run(context.Background())
}
