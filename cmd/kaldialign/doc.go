// Package main hosts the kaldialign CLI entrypoint and command graph.
//
// The root command runs the alignment pipeline over an audio directory; the
// subcommands scaffold and validate configuration, report toolkit
// availability, browse the run history and expose the CTM converters on
// their own. Configuration resolution and logger setup live here so the
// commands stay declarative while the work happens in internal packages.
package main
