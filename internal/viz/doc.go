// Package viz renders component trees, space declarations and recorded runs
// for the terminal.
//
//   - [Tree]: one line per component with its state and action fields
//   - [Spaces]: aligned table of a flattened space declaration
//   - [Plot]: asciigraph chart of recorded columns
//   - [Sparkline]: compact one-line history used by the live monitor
//
// Colors come from the current [Theme]; see [SetTheme].
package viz
