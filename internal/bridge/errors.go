package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorizedRemotePool is returned when an inbound message claims a
	// source pool that does not match the configured route.
	ErrUnauthorizedRemotePool = errors.New("unauthorized remote pool")
)

// UnknownRouteError is returned when a chain id has no configured route.
type UnknownRouteError struct {
	ChainID uint64
}

func (e *UnknownRouteError) Error() string {
	return fmt.Sprintf("no route configured for chain %d", e.ChainID)
}

// Direction labels one side of a route's rate limiting.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// RateLimitError is returned when a route's token bucket cannot admit the
// requested amount.
type RateLimitError struct {
	ChainID   uint64
	Direction Direction
	Requested int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded on %s route to chain %d: requested %d tokens",
		e.Direction, e.ChainID, e.Requested)
}
