// Package alignment reconciles the sampled frame listing with the recovered
// timestamp sequence and assigns every frame its canonical timestamp key.
//
// Pairing is positional: the i-th image in lexicographic order receives the
// i-th timestamp. Under the truncate policy any surplus on either side is
// dropped and reported; under the strict policy a count mismatch fails the
// run. Apply renames the images to frame_<key>.<ext>, which is the only
// identity a frame carries downstream.
package alignment
