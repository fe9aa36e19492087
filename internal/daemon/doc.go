// Package daemon wires the library scanner, the duplicate queue processor,
// and the optional format migration into one single-instance background
// service.
package daemon
