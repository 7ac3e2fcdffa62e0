package mask

import (
	"math/rand"
	"testing"
)

func randBatch(r *rand.Rand, batch, n int) [][]float64 {
	x := make([][]float64, batch)
	for b := range x {
		row := make([]float64, n)
		for i := range row {
			row[i] = r.NormFloat64()
		}
		x[b] = row
	}
	return x
}

func TestSplitCatRoundtrip(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	shapes := [][]int{{4}, {5}, {2, 2}, {4, 4}, {3, 5}, {2, 3, 4}}
	for _, shape := range shapes {
		size := 1
		for _, l := range shape {
			size *= l
		}
		for _, pattern := range []Pattern{EvenOdd, HalfHalf} {
			for parity := 0; parity < 2; parity++ {
				for _, reshaped := range []bool{false, true} {
					var m *Mask
					var err error
					if reshaped {
						m, err = NewReshaped(shape, parity, pattern)
					} else {
						m, err = New(shape, parity, pattern)
					}
					if err != nil {
						t.Fatalf("build shape=%v parity=%d pattern=%d: %v",
							shape, parity, pattern, err)
					}
					x := randBatch(r, 3, size)
					x0, x1, err := m.Split(x)
					if err != nil {
						t.Fatalf("split: %v", err)
					}
					back, err := m.Cat(x0, x1)
					if err != nil {
						t.Fatalf("cat: %v", err)
					}
					for b := range x {
						for i := range x[b] {
							if back[b][i] != x[b][i] {
								t.Fatalf("shape=%v parity=%d pattern=%d reshaped=%v:"+
									" cat(split(x)) != x at [%d][%d]: %v vs %v",
									shape, parity, pattern, reshaped,
									b, i, back[b][i], x[b][i])
							}
						}
					}
				}
			}
		}
	}
}

func TestEvenOddCheckerboard(t *testing.T) {
	m, err := New([]int{2, 3}, 0, EvenOdd)
	if err != nil {
		t.Fatal(err)
	}
	// sites (i,j) with (i+j) even belong to channel 0 when parity is 0
	want := []uint8{0, 1, 0, 1, 0, 1}
	for i, b := range m.bits {
		if b != want[i] {
			t.Fatalf("bits[%d] = %d, want %d", i, b, want[i])
		}
	}
	mp, err := New([]int{2, 3}, 1, EvenOdd)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range mp.bits {
		if b != 1-want[i] {
			t.Fatalf("parity 1: bits[%d] = %d, want %d", i, b, 1-want[i])
		}
	}
}

func TestHalfHalfOddLength(t *testing.T) {
	// last axis of length 5 splits 3 + 2, the extra site in the first half
	m, err := New([]int{5}, 0, HalfHalf)
	if err != nil {
		t.Fatal(err)
	}
	if m.ChannelSize(0) != 3 || m.ChannelSize(1) != 2 {
		t.Fatalf("channel sizes = %d,%d, want 3,2",
			m.ChannelSize(0), m.ChannelSize(1))
	}
	m1, err := New([]int{5}, 1, HalfHalf)
	if err != nil {
		t.Fatal(err)
	}
	if m1.ChannelSize(1) != 3 || m1.ChannelSize(0) != 2 {
		t.Fatalf("parity 1 channel sizes = %d,%d, want 2,3",
			m1.ChannelSize(0), m1.ChannelSize(1))
	}
}

func TestSameShapeSplitDisjoint(t *testing.T) {
	m, err := New([]int{4, 4}, 0, EvenOdd)
	if err != nil {
		t.Fatal(err)
	}
	r := rand.New(rand.NewSource(3))
	x := randBatch(r, 2, 16)
	x0, x1, err := m.Split(x)
	if err != nil {
		t.Fatal(err)
	}
	for b := range x {
		for i := range x[b] {
			if x0[b][i] != 0 && x1[b][i] != 0 {
				t.Fatalf("channels overlap at [%d][%d]", b, i)
			}
			if x0[b][i]+x1[b][i] != x[b][i] {
				t.Fatalf("split loses mass at [%d][%d]", b, i)
			}
		}
	}
}

func TestPurify(t *testing.T) {
	m, err := New([]int{2, 2}, 0, EvenOdd)
	if err != nil {
		t.Fatal(err)
	}
	x := [][]float64{{1, 2, 3, 4}}
	got := m.Purify(x, 0, false)
	want := []float64{1, 0, 0, 4} // channel 0 sites are (0,0) and (1,1)
	for i := range want {
		if got[0][i] != want[i] {
			t.Fatalf("purify(ch0)[%d] = %v, want %v", i, got[0][i], want[i])
		}
	}
	got = m.Purify(x, 1, true)
	want = []float64{1, 2, 3, 1} // foreign sites forced to one
	for i := range want {
		if got[0][i] != want[i] {
			t.Fatalf("purify(ch1,zero2one)[%d] = %v, want %v", i, got[0][i], want[i])
		}
	}
	// reshaped rows carry no foreign sites
	mr, err := NewReshaped([]int{2, 2}, 0, EvenOdd)
	if err != nil {
		t.Fatal(err)
	}
	half := [][]float64{{5, 6}}
	if out := mr.Purify(half, 0, false); out[0][0] != 5 || out[0][1] != 6 {
		t.Fatalf("reshaped purify changed data: %v", out[0])
	}
}

func TestShapeMismatch(t *testing.T) {
	m, err := New([]int{4}, 0, EvenOdd)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Split([][]float64{{1, 2, 3}}); err == nil {
		t.Fatal("split accepted a short row")
	}
	if _, err := m.Cat([][]float64{{1, 2, 3, 4}}, [][]float64{{1, 2, 3}}); err == nil {
		t.Fatal("cat accepted a short row")
	}
	if _, err := m.Cat([][]float64{{1, 2, 3, 4}}, nil); err == nil {
		t.Fatal("cat accepted mismatched batches")
	}
	if _, err := New([]int{4}, 2, EvenOdd); err == nil {
		t.Fatal("accepted parity 2")
	}
	if _, err := New(nil, 0, EvenOdd); err == nil {
		t.Fatal("accepted empty shape")
	}
	if _, err := New([]int{1}, 0, EvenOdd); err == nil {
		t.Fatal("accepted a partition with an empty channel")
	}
}
