// Package timestamps recovers per-frame presentation timestamps from the
// diagnostic log ffmpeg's showinfo filter writes to stderr.
//
// Each line that mentions showinfo and carries a pts_time token yields one
// timestamp. Line order is emission order. Lines with a malformed token are
// skipped rather than counted, so a damaged log produces fewer timestamps than
// sampled frames; the alignment package decides what to do with the surplus.
package timestamps
