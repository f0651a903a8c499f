// Package window cuts the fixed-duration audio clip that accompanies every
// aligned frame and verifies what the decoder actually produced.
//
// A window starts exactly at its frame's timestamp and is always encoded as
// mono 16-bit PCM at 16 kHz. After the cut the clip is measured: a clip with
// no samples is an error, and a clip shorter than requested (a timestamp near
// the end of the stream) is returned with Short set so the run can report it.
package window
