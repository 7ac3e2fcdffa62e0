package spline

import (
	"math/rand"
	"testing"
)

func BenchmarkBuild(b *testing.B) {
	p := Params{XLo: 0, XHi: 1, YLo: 0, YHi: 1}
	r := rand.New(rand.NewSource(1))
	raw := make([]float64, 3*8-2)
	for i := range raw {
		raw[i] = r.NormFloat64()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Build(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkForward(b *testing.B) {
	p := Params{XLo: 0, XHi: 1, YLo: 0, YHi: 1}
	r := rand.New(rand.NewSource(2))
	raw := make([]float64, 3*8-2)
	for i := range raw {
		raw[i] = r.NormFloat64()
	}
	sp, err := p.Build(raw)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sp.Forward(float64(i%1000) / 1000)
	}
}
