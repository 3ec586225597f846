// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

// DescriptorOracle is the dense local-descriptor contract a matching
// tool consumes: configure the sampling geometry once, hand over an
// image, and read back a dense width*height*DescriptorSize float array.
// The reconstruction core defines only this surface; the library behind
// it (and any matching built on it) lives outside this module.
type DescriptorOracle interface {
	// Configure sets the descriptor's sampling geometry: outer radius in
	// pixels plus the radial, angular and histogram quantisation levels.
	Configure(radius float64, radialQuant, angularQuant, histQuant int)

	// SetImage hands the oracle a grayscale image as row-major floats.
	SetImage(pixels []float32, width, height int)

	// ComputeAll computes a descriptor for every pixel and returns the
	// dense width*height*DescriptorSize result.
	ComputeAll() []float32

	// DescriptorSize reports the per-pixel descriptor length implied by
	// the configured quantisation.
	DescriptorSize() int
}
