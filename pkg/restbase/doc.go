// Package restbase wires the individual API clients into one runtime based on
// environment variables. HTTP mode points every client at a live backend over
// a shared transport; mock mode boots the in-process sandbox on a loopback
// listener so the exact same clients work offline.
package restbase
