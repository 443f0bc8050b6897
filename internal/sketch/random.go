package sketch

import "math"

// mulberry32 returns a seeded generator of floats in [0, 1).
func mulberry32(seed uint32) func() float64 {
	state := seed
	return func() float64 {
		state += 0x6d2b79f5
		t := state
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return float64(t^(t>>14)) / 4294967296
	}
}

func seedFrom(v float64) uint32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return uint32(int64(v))
}

func fract(v float64) float64 {
	return v - math.Floor(v)
}

func hash2(x, y, seed float64) float64 {
	return fract(math.Sin(x*127.1+y*311.7+seed*0.0019) * 43758.5453123)
}

// valueNoise is smoothstep-interpolated lattice noise in [0, 1).
func valueNoise(x, y, seed float64) float64 {
	x0, y0 := math.Floor(x), math.Floor(y)
	tx, ty := fract(x), fract(y)

	a := hash2(x0, y0, seed)
	b := hash2(x0+1, y0, seed)
	c := hash2(x0, y0+1, seed)
	d := hash2(x0+1, y0+1, seed)

	ux := tx * tx * (3 - 2*tx)
	uy := ty * ty * (3 - 2*ty)

	ab := a*(1-ux) + b*ux
	cd := c*(1-ux) + d*ux
	return ab*(1-uy) + cd*uy
}

// fbm sums five octaves of value noise.
func fbm(x, y, seed float64) float64 {
	amplitude, frequency, value := 0.5, 1.0, 0.0
	for octave := 0; octave < 5; octave++ {
		value += valueNoise(x*frequency, y*frequency, seed+float64(octave)*7919) * amplitude
		frequency *= 2
		amplitude *= 0.5
	}
	return value
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
