// Package preflight provides readiness checks for the filesystem paths,
// external binaries and services subextract depends on.
//
// The daemon runs RunAll at startup and refuses to start when a directory
// check fails. The CLI "subextract deps" command renders the same results
// alongside CheckSystemDeps.
package preflight
