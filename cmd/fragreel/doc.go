// Command fragreel ingests CS2 match recordings, finds highlight moments and
// renders them to short videos.
//
// Read-only commands (matches, highlights, tasks, stats, templates) open the
// SQLite store directly. Commands that render take the workspace lock; when
// "fragreel serve" already holds it, render and import requests are handed
// to the running server over its local HTTP API instead.
package main
