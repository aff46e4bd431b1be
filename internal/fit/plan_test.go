package fit

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanFor(t *testing.T) {
	tests := []struct {
		w, h, max int
		want      Plan
	}{
		{2000, 1000, 1024, Plan{1024, 512}},
		{1000, 2000, 1024, Plan{512, 1024}},
		{800, 600, 1024, Plan{800, 600}},
		{2000, 1500, 1024, Plan{1024, 768}},
		{1024, 1024, 1024, Plan{1024, 1024}},
		{3000, 3000, 1024, Plan{1024, 1024}},
		// 1500 * 1024 / 2001 = 767.6 rounds up
		{2001, 1500, 1024, Plan{1024, 768}},
		// 1 * 100 / 5000 = 0.02 clamps to one pixel
		{5000, 1, 100, Plan{100, 1}},
		// 3 * 5 / 10 = 1.5 rounds half away from zero
		{10, 3, 5, Plan{5, 2}},
	}

	for _, tc := range tests {
		got := PlanFor(tc.w, tc.h, tc.max)
		assert.Equal(t, tc.want, got, "PlanFor(%d, %d, %d)", tc.w, tc.h, tc.max)
	}
}

func TestPlanForProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		w := rng.Intn(8000) + 1
		h := rng.Intn(8000) + 1
		max := rng.Intn(4000) + 1

		p := PlanFor(w, h, max)
		again := PlanFor(w, h, max)
		if p != again {
			t.Fatalf("PlanFor(%d, %d, %d) not deterministic: %v vs %v", w, h, max, p, again)
		}

		if p.Width > w || p.Height > h {
			t.Fatalf("PlanFor(%d, %d, %d) = %v upscales", w, h, max, p)
		}

		longest := w
		if h > longest {
			longest = h
		}
		if longest <= max {
			if p.Width != w || p.Height != h {
				t.Fatalf("PlanFor(%d, %d, %d) = %v, want unchanged", w, h, max, p)
			}
			continue
		}

		if p.LongestSide() != max {
			t.Fatalf("PlanFor(%d, %d, %d) = %v, longest side %d != %d", w, h, max, p, p.LongestSide(), max)
		}

		// the short side is within one pixel of exact ratio scaling
		scale := float64(max) / float64(longest)
		if w >= h {
			exact := float64(h) * scale
			if math.Abs(float64(p.Height)-exact) > 1 {
				t.Fatalf("PlanFor(%d, %d, %d) = %v, height too far from %.2f", w, h, max, p, exact)
			}
		} else {
			exact := float64(w) * scale
			if math.Abs(float64(p.Width)-exact) > 1 {
				t.Fatalf("PlanFor(%d, %d, %d) = %v, width too far from %.2f", w, h, max, p, exact)
			}
		}
	}
}
