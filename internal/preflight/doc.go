// Package preflight provides readiness checks for the Kaldi toolkit, the
// model bundle and the filesystem paths a run depends on.
//
// These checks run in two contexts:
//   - The root command calls RunAll before starting the pipeline. If any
//     check fails the run is refused, so a missing model file surfaces
//     before minutes of feature extraction rather than after.
//   - The deps command uses CheckSystemDeps to display toolkit health.
package preflight
