// Package pipeline runs the alignment stages against one audio directory.
//
// An Orchestrator generates the audio manifest and then executes the Kaldi
// stages in a fixed order: mfcc, ivectors, decode, phone_ctm, word_ctm and
// textgrid. The first failing stage aborts the run; nothing is retried or
// rolled back and earlier outputs stay on disk. Each run holds an exclusive
// lock on its data directory, writes a JSON log of its own and, when a
// Recorder is attached, leaves a row per stage in the run history.
package pipeline
