// Package record defines the value types shared by every other package:
// the canonical PriceRecord produced by a successful extraction, the
// persisted Observation form, and the per-run Snapshot that maps basket
// items to the records last seen at each store.
//
// Records are immutable once built. Prices are decimal throughout; the
// Observation form keeps prices as text so that a damaged snapshot file
// degrades to skipped items rather than a failed run.
package record
