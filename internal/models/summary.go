package models

import "time"

// TripSummary describes a loaded dataset before cleaning.
type TripSummary struct {
	TotalTrips          int
	DateStart           time.Time
	DateEnd             time.Time
	UniqueStartStations int
	UniqueEndStations   int
	MemberTrips         int
	CasualTrips         int
	MissingStartCoords  int
	MissingEndCoords    int
	MissingStartStation int
}

// QualityReport collects data-quality counters over a raw dataset
// with derived duration/distance columns.
type QualityReport struct {
	TotalRows          int
	MissingByColumn    map[string]int
	NegativeDurations  int
	ZeroDurations      int
	ExtremeDurations   int // longer than 3 hours
	MissingCoordinates int
	MemberCasualCounts map[string]int
}
