// Package system provides a real clock implementation.
package system

import "time"

// Clock implements scraper.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current local time. Artifact names and record timestamps
// use local time to match the operator's filesystem view.
func (Clock) Now() time.Time {
	return time.Now()
}
