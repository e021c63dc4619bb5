// Package lifecycle mutates the local instance's own state: its Auto Scaling
// health flag, its mi:roles tag and its lifecycle hooks.
//
// Every call goes through the retry executor. KeepAlive is the only
// long-running operation; it sends a bounded number of heartbeats and honors
// context cancellation between them.
package lifecycle
