package audio

import "math"

// resampleZeroCrossings is the number of sinc zero crossings kept on each
// side of the interpolation point.
const resampleZeroCrossings = 16

// Resampler converts signals from one fixed sample rate to another using
// Hann-windowed sinc interpolation. When downsampling the sinc cutoff is
// lowered to the output Nyquist frequency to suppress aliasing.
// A Resampler is stateless between calls and deterministic.
type Resampler struct {
	from, to int
}

// NewResampler returns a resampler from rate `from` to rate `to` (Hz).
func NewResampler(from, to int) *Resampler {
	return &Resampler{from: from, to: to}
}

// From returns the input sample rate.
func (r *Resampler) From() int { return r.from }

// To returns the output sample rate.
func (r *Resampler) To() int { return r.to }

// Resample returns a new slice of floor(len(in)*to/from) samples.
// Equal rates return an unmodified copy.
func (r *Resampler) Resample(in []float32) []float32 {
	if r.from == r.to {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}

	n := int(int64(len(in)) * int64(r.to) / int64(r.from))
	out := make([]float32, n)
	if n == 0 {
		return out
	}

	step := float64(r.from) / float64(r.to)
	cutoff := 1.0
	if r.to < r.from {
		cutoff = float64(r.to) / float64(r.from)
	}
	// Window half-width in input samples.
	half := float64(resampleZeroCrossings) / cutoff
	last := len(in) - 1

	for i := range out {
		center := float64(i) * step
		lo := int(math.Ceil(center - half))
		hi := int(math.Floor(center + half))
		if lo < 0 {
			lo = 0
		}
		if hi > last {
			hi = last
		}

		var acc, wsum float64
		for j := lo; j <= hi; j++ {
			x := center - float64(j)
			w := cutoff * sinc(cutoff*x) * hann(x/half)
			acc += w * float64(in[j])
			wsum += w
		}
		if wsum != 0 {
			out[i] = float32(acc / wsum)
		}
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// hann is the Hann window on [-1, 1], zero outside.
func hann(t float64) float64 {
	if t <= -1 || t >= 1 {
		return 0
	}
	return 0.5 + 0.5*math.Cos(math.Pi*t)
}
