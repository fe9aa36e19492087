// Package migration rebuilds the fingerprint index under the current format
// generation and resolves duplicates in bulk. It runs once per format
// upgrade as a blocking startup pass, reusing the extractor and index
// directly instead of going through the verification queue.
package migration
