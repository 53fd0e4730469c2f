// Package notify is an optional, off-by-default event sink for job
// lifecycle events. It trims the teacher's notifications package down to
// generic event payloads: this system has no disc/rip/organize lifecycle
// to narrate, only job stage transitions and terminal outcomes.
package notify
