// Package deploy activates rendered nginx configuration safely. Every
// activation snapshots the live configuration directory first, writes
// the new file, runs the nginx syntax checker against the full set, and
// either reloads nginx or restores the snapshot in full. The live
// directory is guarded by an advisory file lock so concurrent runs
// cannot interleave their snapshot and write steps.
package deploy
