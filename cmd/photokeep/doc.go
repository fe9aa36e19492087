// Command photokeep is the operator CLI for the photokeep deduplication
// service: store status, queue inspection, format backfill, and fingerprint
// debugging.
package main
