// Package analysis post-processes recorded runs.
//
//   - [PowerSpectrum] and [DominantFrequency]: spectra of a sampled signal,
//     such as the base height bouncing on its contacts
//   - [Schedule]: per-contact duty factor and touchdown counts
//   - [PhasePortraitToASCII]: a two-variable phase plot for the terminal
package analysis
