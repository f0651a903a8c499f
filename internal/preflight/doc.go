// Package preflight provides readiness checks for the binaries, directories
// and speech model that vidchunk depends on.
//
// These checks run in two contexts:
//   - The CLI "vidchunk check" command runs RunAll and renders every result.
//   - "vidchunk extract" runs CheckSystemDeps before starting the engine so a
//     missing ffmpeg is reported once instead of per invocation.
//
// Checks for disabled features are skipped.
package preflight
