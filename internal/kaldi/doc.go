// Package kaldi wraps the external Kaldi programs the alignment pipeline drives.
//
// Toolkit renders the exact command lines for each stage from configuration,
// and Executor runs them either one at a time or as an in-process pipeline
// connected with OS pipes. Tests substitute Executor to assert argument lists
// without a Kaldi installation.
package kaldi
