// Package dataset assembles the (image, audio, transcript) triplets a run
// produces and writes the manifest handed to downstream consumers.
package dataset
