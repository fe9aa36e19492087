// Package fingerprint derives perceptual fingerprints from photo pixels.
//
// Extraction is a pure function: identical pixel bytes always produce a
// bit-identical term. The pipeline normalizes the image (grayscale, border
// crop, fixed-size resample, box blur), applies a separable 2D Haar wavelet
// transform, and hashes the low-frequency coefficients along a zig-zag
// traversal into a fixed-length bit string.
//
// Every constant that influences the output is versioned in formats.go.
// Changing any of them changes matching behavior for persisted fingerprints
// and therefore requires a new format version; old formats stay computable so
// records indexed under them remain matchable.
package fingerprint
