// Package fingerprint persists which source items have already been
// published so repeated runs never repost the same logical unit.
//
// Keys are content hashes derived from the item id and a text prefix, and
// records are append-only. Two backends exist: an embedded SQLite database
// (default) and a flat JSON file, both behind the same Store interface.
package fingerprint
