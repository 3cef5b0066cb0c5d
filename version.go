// Package tastate constructs timed-automaton models that start in a chosen
// state: a clock zone, a location vector and a variable valuation.
package tastate

// Version is the current version of tastate.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
