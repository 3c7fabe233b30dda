// Package logging provides structured logging for solrscout.
//
// Without --debug, logs go to stderr at the configured level. With --debug,
// JSON logs are also written to ~/.solrscout/logs/solrscout.log with
// size-based rotation, and `solrscout logs` can tail and filter them.
package logging
