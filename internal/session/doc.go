// Package session manages the persistent REST connection to the futures API.
//
// A Manager lazily builds one pooled HTTP/2 client over TLS 1.3, warms it up
// with a throwaway ticker request, and keeps it alive with periodic pings.
// Pings that are not followed by real traffic count toward expiry: after
// MaxIdlePings consecutive idle cycles the client is torn down and the next
// call to Client builds a fresh one.
package session
