// Package preflight provides readiness checks for the directories, database
// and external tools fragreel depends on.
//
// The CLI "fragreel status" command and the API status endpoint both call
// RunAll and CheckSystemDeps. "fragreel serve" refuses to start when a
// required directory check fails.
package preflight
