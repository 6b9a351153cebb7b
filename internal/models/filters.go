package models

import "time"

// TripFilter narrows trip queries against the results store.
// Zero values mean "no constraint".
type TripFilter struct {
	StartedAfter  time.Time
	StartedBefore time.Time
	MemberCasual  string
	RideableType  string
	MinDistanceKm float64
	Page          int
	PageSize      int
}
