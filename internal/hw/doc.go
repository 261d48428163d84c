// Package hw provides the daemon's concrete I/O: the wall clock, the
// camera trigger, ADC-backed sensors, the inter-iteration sleep and the
// period display.
package hw
