// Package source fetches recent items from monitored accounts.
//
// The client covers two upstream surfaces: handle-to-account resolution and
// the account timeline, requested with media expansions so attachment URLs
// arrive resolved and the media relay never has to make follow-up lookups.
// Reconstruction of threads from the fetched window lives in package thread.
package source
