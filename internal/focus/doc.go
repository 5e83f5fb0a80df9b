// Package focus serializes session start and stop requests against a browser
// that can only have one focused window at a time.
//
// A Manager owns a pool of idle windows and a registry binding each active
// session to exactly one window. Every operation that changes driver focus runs
// behind a single-flight gate; queued stops are drained before queued starts.
package focus
