// Package solver holds the numerical engines behind wave components: a
// spectral synthesizer for swell and wind chop, and a bounded interaction
// solver for local disturbances.
package solver
