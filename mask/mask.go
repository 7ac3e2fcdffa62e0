// Package mask partitions lattice configurations into two complementary
// channels. A Mask owns a 0/1 pattern over a lattice shape and exposes
// Split and Cat such that Cat(Split(x)) == x exactly, plus Purify to zero
// out entries that leaked outside a channel's support.
package mask

import (
	"fmt"
)

// Pattern selects how lattice sites are assigned to the two channels.
type Pattern int

const (
	// EvenOdd assigns site (i0,...,ik) to channel (i0+...+ik+parity) mod 2,
	// a checkerboard over the lattice.
	EvenOdd Pattern = iota
	// HalfHalf assigns the first ceil(L/2) slices of the last axis to
	// channel parity and the rest to the other channel.
	HalfHalf
)

// Mask partitions flattened lattice configurations into two channels.
// Configurations are batches of rows, each row a row-major flattening of
// the lattice shape. Immutable after construction.
type Mask struct {
	shape     []int
	size      int
	bits      []uint8 // channel per flat site
	keepShape bool
	idx       [2][]int // flat sites per channel, in flat order
}

// New builds a same-shape mask: Split returns two full-size rows with the
// complementary channel zeroed, and Cat is elementwise addition.
func New(shape []int, parity int, pattern Pattern) (*Mask, error) {
	return build(shape, parity, pattern, true)
}

// NewReshaped builds a reshaped mask: Split gathers each channel into a
// contiguous half-length row and Cat scatters them back.
func NewReshaped(shape []int, parity int, pattern Pattern) (*Mask, error) {
	return build(shape, parity, pattern, false)
}

func build(shape []int, parity int, pattern Pattern, keepShape bool) (*Mask, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("mask: empty shape")
	}
	if parity != 0 && parity != 1 {
		return nil, fmt.Errorf("mask: parity must be 0 or 1, got %d", parity)
	}
	size := 1
	for _, l := range shape {
		if l < 1 {
			return nil, fmt.Errorf("mask: invalid dimension %d in shape %v", l, shape)
		}
		size *= l
	}
	m := &Mask{
		shape:     append([]int(nil), shape...),
		size:      size,
		bits:      make([]uint8, size),
		keepShape: keepShape,
	}
	switch pattern {
	case EvenOdd:
		m.fillEvenOdd(parity)
	case HalfHalf:
		m.fillHalfHalf(parity)
	default:
		return nil, fmt.Errorf("mask: unknown pattern %d", pattern)
	}
	for i, b := range m.bits {
		m.idx[b] = append(m.idx[b], i)
	}
	if len(m.idx[0]) == 0 || len(m.idx[1]) == 0 {
		return nil, fmt.Errorf("mask: degenerate partition for shape %v", shape)
	}
	return m, nil
}

func (m *Mask) fillEvenOdd(parity int) {
	ind := make([]int, len(m.shape))
	for flat := 0; flat < m.size; flat++ {
		sum := 0
		for _, v := range ind {
			sum += v
		}
		m.bits[flat] = uint8((sum + parity) % 2)
		for ax := len(ind) - 1; ax >= 0; ax-- {
			ind[ax]++
			if ind[ax] < m.shape[ax] {
				break
			}
			ind[ax] = 0
		}
	}
}

func (m *Mask) fillHalfHalf(parity int) {
	last := m.shape[len(m.shape)-1]
	n := (1 + last) / 2 // first half takes the extra site when last is odd
	for flat := 0; flat < m.size; flat++ {
		if flat%last < n {
			m.bits[flat] = uint8(parity)
		} else {
			m.bits[flat] = uint8(1 - parity)
		}
	}
}

// Shape returns the lattice shape the mask was built for.
func (m *Mask) Shape() []int { return append([]int(nil), m.shape...) }

// Size returns the number of lattice sites.
func (m *Mask) Size() int { return m.size }

// ChannelSize returns the number of sites owned by the given channel.
func (m *Mask) ChannelSize(channel int) int { return len(m.idx[channel&1]) }

// KeepShape reports whether the mask operates in same-shape mode.
func (m *Mask) KeepShape() bool { return m.keepShape }

func (m *Mask) checkRows(x [][]float64, want int) error {
	for i, row := range x {
		if len(row) != want {
			return fmt.Errorf("mask: row %d has %d elements, want %d for shape %v",
				i, len(row), want, m.shape)
		}
	}
	return nil
}

// Split partitions a batch of configurations into the two channels.
// Same-shape mode returns full-size rows with the complementary channel
// zeroed; reshaped mode returns contiguous per-channel rows.
func (m *Mask) Split(x [][]float64) (x0, x1 [][]float64, err error) {
	if err := m.checkRows(x, m.size); err != nil {
		return nil, nil, err
	}
	x0 = make([][]float64, len(x))
	x1 = make([][]float64, len(x))
	if m.keepShape {
		for b, row := range x {
			r0 := make([]float64, m.size)
			r1 := make([]float64, m.size)
			for i, v := range row {
				if m.bits[i] == 0 {
					r0[i] = v
				} else {
					r1[i] = v
				}
			}
			x0[b], x1[b] = r0, r1
		}
		return x0, x1, nil
	}
	for b, row := range x {
		r0 := make([]float64, len(m.idx[0]))
		r1 := make([]float64, len(m.idx[1]))
		for j, i := range m.idx[0] {
			r0[j] = row[i]
		}
		for j, i := range m.idx[1] {
			r1[j] = row[i]
		}
		x0[b], x1[b] = r0, r1
	}
	return x0, x1, nil
}

// Cat is the inverse of Split. Same-shape mode sums the two disjoint
// fields; reshaped mode scatters the halves back into their sites.
func (m *Mask) Cat(x0, x1 [][]float64) ([][]float64, error) {
	if len(x0) != len(x1) {
		return nil, fmt.Errorf("mask: batch mismatch %d vs %d", len(x0), len(x1))
	}
	if m.keepShape {
		if err := m.checkRows(x0, m.size); err != nil {
			return nil, err
		}
		if err := m.checkRows(x1, m.size); err != nil {
			return nil, err
		}
		x := make([][]float64, len(x0))
		for b := range x0 {
			row := make([]float64, m.size)
			for i := range row {
				row[i] = x0[b][i] + x1[b][i]
			}
			x[b] = row
		}
		return x, nil
	}
	if err := m.checkRows(x0, len(m.idx[0])); err != nil {
		return nil, err
	}
	if err := m.checkRows(x1, len(m.idx[1])); err != nil {
		return nil, err
	}
	x := make([][]float64, len(x0))
	for b := range x0 {
		row := make([]float64, m.size)
		for j, i := range m.idx[0] {
			row[i] = x0[b][j]
		}
		for j, i := range m.idx[1] {
			row[i] = x1[b][j]
		}
		x[b] = row
	}
	return x, nil
}

// Purify zeroes the entries of x lying outside the given channel's
// support. With zero2one those entries are set to 1 instead, for
// multiplicative quantities whose don't-care value must not affect
// products. Reshaped rows carry no foreign sites, so they pass through.
func (m *Mask) Purify(x [][]float64, channel int, zero2one bool) [][]float64 {
	if !m.keepShape {
		return x
	}
	c := uint8(channel & 1)
	out := make([][]float64, len(x))
	for b, row := range x {
		r := make([]float64, len(row))
		for i, v := range row {
			switch {
			case i < m.size && m.bits[i] == c:
				r[i] = v
			case zero2one:
				r[i] = 1
			}
		}
		out[b] = r
	}
	return out
}
