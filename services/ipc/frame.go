// services/ipc/frame.go
package ipc

import (
	"errors"
	"io"
)

// Frame types on the inter-processor link.
const (
	frameTime   byte = 0x01
	frameStatus byte = 0x02
	frameAck    byte = 0x13
	frameClose  byte = 0x7F
)

// Frame is a length-prefixed frame: type byte, big-endian uint16
// payload length, payload.
type Frame struct {
	Type    byte
	Payload []byte
}

var errFrameTooLarge = errors.New("frame too large")

type framedReader struct{ r io.Reader }
type framedWriter struct{ w io.Writer }

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: hdr[0], Payload: buf}, nil
}

func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > 0xFFFF {
		return errFrameTooLarge
	}
	hdr := []byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload))}
	if _, err := fw.w.Write(hdr); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		_, err := fw.w.Write(f.Payload)
		return err
	}
	return nil
}
