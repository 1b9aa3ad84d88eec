// Package convert turns raw extracted declarations into the generator input
// document.
//
// Every declaration is converted independently into its own slot, in
// parallel, with one shared builtin.Registry. Extraction problems become
// diagnostics and drop only the declaration that caused them; registry
// collisions stop the whole run.
package convert
