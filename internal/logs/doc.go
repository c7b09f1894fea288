// Package logs reads back the log file written by the logging package.
//
// Last returns the final lines of a file with bounded memory, and Follow
// polls from an offset until its context ends, restarting from the top when
// the file is truncated. Both treat a missing file as empty so `inpaint logs`
// works before anything has been logged.
package logs
