// timed/adaptor_mcp79410.go
package timed

import (
	"reactor-sys-go/drivers/mcp79410"
	"reactor-sys-go/errcode"
	"reactor-sys-go/types"

	"tinygo.org/x/drivers"
)

// mcp79410Clock adapts the RTC driver to the Clock contract.
type mcp79410Clock struct {
	dev mcp79410.Device
}

// NewMCP79410Clock configures an MCP79410 on the given I2C bus and
// returns it as the authority's hardware clock. The clock is returned
// even when configuration fails: every later access reports a hardware
// error until the chip answers.
func NewMCP79410Clock(bus drivers.I2C, addr uint16) (Clock, error) {
	dev := mcp79410.New(bus)
	clk := &mcp79410Clock{dev: dev}
	if err := dev.Configure(mcp79410.Config{Address: addr, VBATEN: true}); err != nil {
		return clk, &errcode.E{C: errcode.HardwareWrite, Op: "rtc_configure", Err: err}
	}
	return clk, nil
}

func (c *mcp79410Clock) Read() (types.DateTime, error) {
	t, err := c.dev.ReadTime()
	if err != nil {
		return types.DateTime{}, &errcode.E{C: errcode.HardwareRead, Op: "rtc_read", Err: err}
	}
	return types.DateTime{
		Year:   t.Year,
		Month:  t.Month,
		Day:    t.Day,
		Hour:   t.Hour,
		Minute: t.Minute,
		Second: t.Second,
	}, nil
}

func (c *mcp79410Clock) Write(dt types.DateTime) error {
	err := c.dev.SetTime(mcp79410.Time{
		Year:   dt.Year,
		Month:  dt.Month,
		Day:    dt.Day,
		Hour:   dt.Hour,
		Minute: dt.Minute,
		Second: dt.Second,
	})
	if err != nil {
		return &errcode.E{C: errcode.HardwareWrite, Op: "rtc_write", Err: err}
	}
	return nil
}
