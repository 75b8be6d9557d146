// Package match defines the records produced by recording ingestion and
// highlight detection: matches, rounds, kill events, per-player statistics
// and highlights.
//
// The types carry no behaviour beyond small derived values; persistence lives
// in the store package and detection in the highlight package.
package match
