// statusd/board.go
package statusd

import (
	"time"

	"reactor-sys-go/diag"
	"reactor-sys-go/errcode"
	"reactor-sys-go/guard"
	"reactor-sys-go/types"
)

// Board owns the device health value: power-rail readings with their
// in-range flags and the four indicator colours. Writers are the power
// monitor and whichever task needs to flag component health; the
// indicator task and status reporters read. Every access is a whole
// field replacement under the cell, so torn reads are impossible.
type Board struct {
	cell *guard.Cell[types.Status]
	log  *diag.Sink
	wait time.Duration
}

// New returns a board with every rail flag false and every voltage
// zero, so the first snapshot reads as unknown/out-of-range rather
// than leftover garbage. Indicators start dark.
func New(log *diag.Sink) *Board {
	return &Board{
		cell: guard.NewCell(types.Status{}),
		log:  log,
		wait: 100 * time.Millisecond,
	}
}

// SetIndicator assigns a colour to one of the four indicator slots.
// An index outside 0..3 is rejected before anything is touched.
func (b *Board) SetIndicator(index int, colour types.Colour) error {
	if index < 0 || index >= types.LEDCount {
		b.log.Errorf("statusd: invalid LED number: %d", index)
		return errcode.InvalidIndex
	}
	return b.cell.With(b.wait, func(s *types.Status) {
		s.LED[index] = colour
	})
}

// SetRails replaces the three voltage readings and their flags.
func (b *Board) SetRails(vpsu, v20, v5 float32, psuOK, v20OK, v5OK bool) error {
	return b.cell.With(b.wait, func(s *types.Status) {
		s.VPSU, s.V20, s.V5 = vpsu, v20, v5
		s.PSUOK, s.V20OK, s.V5OK = psuOK, v20OK, v5OK
	})
}

// Snapshot returns a copy of the current status.
func (b *Board) Snapshot() (types.Status, error) {
	var out types.Status
	if err := b.cell.With(b.wait, func(s *types.Status) { out = *s }); err != nil {
		return types.Status{}, err
	}
	return out, nil
}
