// Package analytics computes gap, NPS and segment statistics over a snapshot
// of survey records.
//
// Everything here is a pure function of its arguments: no state is kept
// between calls and inputs are never modified, so the functions may be
// called concurrently without locking. Empty denominators never produce NaN;
// the affected row or segment is left out of the result instead.
package analytics
