package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the one-sided amplitude spectrum of samples taken
// every dt seconds, with the mean removed. freqs holds the bin frequencies
// in Hz. Any length is accepted.
func PowerSpectrum(samples []float64, dt float64) (freqs, power []float64) {
	n := len(samples)
	if n < 2 || dt <= 0 {
		return nil, nil
	}

	mean := stat.Mean(samples, nil)
	centred := make([]float64, n)
	for i, v := range samples {
		centred[i] = v - mean
	}
	spec := fft.FFTReal(centred)

	half := n / 2
	freqs = make([]float64, half)
	power = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		power[k] = cmplx.Abs(spec[k])
	}
	return freqs, power
}

// DominantFrequency is the frequency of the strongest non-zero bin, or 0
// for signals too short to have one.
func DominantFrequency(samples []float64, dt float64) float64 {
	freqs, power := PowerSpectrum(samples, dt)
	if len(power) < 2 {
		return 0
	}
	return freqs[1+floats.MaxIdx(power[1:])]
}
