//go:build tinygo

package ipc

import (
	"context"
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTDial returns a Dialler over a hardware UART. The UART is
// configured on every dial so a redial after link trouble re-arms the
// peripheral.
func UARTDial(u *uartx.UART, baud uint32, tx, rx machine.Pin) Dialler {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		if err := u.Configure(uartx.UARTConfig{BaudRate: baud, TX: tx, RX: rx}); err != nil {
			return nil, err
		}
		return &uartPort{u: u}, nil
	}
}

type uartPort struct{ u *uartx.UART }

func (p *uartPort) Read(b []byte) (int, error) {
	return p.u.RecvSomeContext(context.Background(), b)
}

func (p *uartPort) Write(b []byte) (int, error) { return p.u.Write(b) }

// Close leaves the peripheral configured; the next dial reclaims it.
func (p *uartPort) Close() error { return nil }
