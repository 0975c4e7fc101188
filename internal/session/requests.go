package session

import (
	"fmt"
	"sync/atomic"
)

// RequestIDs issues monotonically increasing analysis request numbers.
type RequestIDs struct {
	counter uint64
}

// NewRequestIDs creates a generator starting at 1.
func NewRequestIDs() *RequestIDs {
	return &RequestIDs{}
}

// Next returns the next sequence number and its request id.
func (g *RequestIDs) Next(sessionID string) (uint64, string) {
	n := atomic.AddUint64(&g.counter, 1)
	return n, fmt.Sprintf("%s-req-%d", sessionID, n)
}
