// Package pebble caches compiled programs on disk, keyed by the program
// fingerprint, so unchanged graphs skip code generation.
package pebble
