// Package library defines the collaborator interfaces the deduplication
// engine consumes — asset enumeration with scan signaling, image decoding,
// episode membership, and background-task lifecycle — plus the
// filesystem-backed implementation the daemon runs with.
//
// The engine only ever sees the interfaces; tests substitute in-memory
// fakes from internal/testsupport.
package library
