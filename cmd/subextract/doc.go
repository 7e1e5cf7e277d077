// Command subextract is the operator CLI: it submits and inspects jobs over
// the daemon's control socket, starts and stops subextractd, and runs
// one-shot extractions and subtitle checks locally.
package main
