// Package caller carries the explicit per-operation context the surrounding
// product passes into the core: who is acting and under which tenant. It
// replaces ambient lookups; nothing in the core reads global state.
package caller

import "github.com/oklog/ulid/v2"

// Context identifies the caller of a store or engine operation.
type Context struct {
	TenantID      string
	Role          string
	CorrelationID string
}

// WithCorrelation returns a copy with CorrelationID filled in when the
// surrounding product did not supply one.
func (c Context) WithCorrelation() Context {
	if c.CorrelationID == "" {
		c.CorrelationID = ulid.Make().String()
	}
	return c
}
