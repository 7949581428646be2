// Package kartifact publishes the inspectable outputs of a compiled graph:
// its DOT rendering, the program and the generated routine sources.
package kartifact
