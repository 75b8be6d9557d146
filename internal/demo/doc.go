// Package demo turns a recording file into a match record, its rounds, kill
// events and player scoreboard.
//
// Two decoders exist. CLIDecoder runs the external structured decoder as a
// subprocess with a deadline and bounded output; HeaderDecoder reads only a
// small header window and recovers the map name. NewIngestor picks one when
// it is constructed, based on whether the configured decoder binary is
// installed, so the choice is never re-probed per file. Degraded results are
// still successes; callers treat empty round and kill lists as valid.
package demo
