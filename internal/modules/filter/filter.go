// Package filter implements the membership filter over Babel JSONL files.
//
// A run has three stages that share one Index:
//
//	BuildIndex    reads the filter file into an Index, applying category exclusion
//	Engine        streams data files, keeping lines whose identifier it can Take
//	EmitResidual  writes a synthesized record for every entry left in the Index
//
// Only identifiers (and, for filter lines, categories and name) are read from
// a line. Kept data lines are copied byte for byte.
package filter
