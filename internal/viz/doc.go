// Package viz renders diagrams and run results for the terminal.
//
//   - [GraphReport]: block, edge and clock tables for a compiled graph
//   - [RunSummary]: status, counters, watched-signal sparklines and metrics
//   - [PlotPortrait]: braille phase portrait on a [Canvas]
//
// Colours come from the current [Theme]; [SetTheme] switches it.
package viz
