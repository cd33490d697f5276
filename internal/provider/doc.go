// Package provider talks to the external catalog stream resolver: listing the
// encodings available for a reference and opening the chosen stream, optionally
// through an authenticated proxy.
package provider
