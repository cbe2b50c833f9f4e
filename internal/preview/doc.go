// Package preview renders inspection artefacts for two-stop results.
//
// Nothing here feeds back into the transform. Histograms, display-sized
// previews and before/after comparisons are computed from finished buffers:
// the "before" image is the 8-bit bypass rendering of the source
// (twostop.Narrow) and the "after" image is the two-stop output.
package preview
