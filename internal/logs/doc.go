// Package logs reads run log files for the history command.
//
// Reads use bounded memory regardless of log size: only the requested number
// of trailing lines is retained.
package logs
