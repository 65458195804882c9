// Package viz styles console output of a simulation run.
//
//   - [Reporter]: per-frame "F R A M E n" banners and written files
//   - [Probe]: samples the composite surface at a point every frame
//   - [PlotHeights]: asciigraph plot of a probe series
//   - [Summary]: the closing result panel
package viz
