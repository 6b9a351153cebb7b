package interpret

import (
	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// Segment labels assigned by the rule table.
const (
	LabelCommuters  = "Weekday Commuters (AM/PM peaks, members, short trips)"
	LabelTourists   = "Weekend Leisure/Tourists (long trips, casual users)"
	LabelLastMile   = "Last-Mile Connectors (very short, near transit)"
	LabelLoops      = "Leisure Loops (round trips, parks/attractions)"
	LabelRegulars   = "Regular Users/Off-Peak Commuters"
	LabelMixed      = "Mixed/Casual Riders"
)

// Rule pairs a predicate over a cluster profile with the segment
// label it assigns.
type Rule struct {
	Label   string
	Matches func(p models.ClusterProfile) bool
}

// DefaultRules returns the segment rules in priority order. The first
// matching rule wins; the final rule always matches.
func DefaultRules() []Rule {
	return []Rule{
		{
			Label: LabelCommuters,
			Matches: func(p models.ClusterProfile) bool {
				hour := mean(p, "start_hour", 12)
				return mean(p, "is_member", 0.5) > 0.7 &&
					mean(p, "is_weekend", 0) < 0.3 &&
					((hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19))
			},
		},
		{
			Label: LabelTourists,
			Matches: func(p models.ClusterProfile) bool {
				return mean(p, "is_weekend", 0) > 0.5 &&
					mean(p, "duration_min", 0) > 25 &&
					mean(p, "is_member", 0.5) < 0.5
			},
		},
		{
			Label: LabelLastMile,
			Matches: func(p models.ClusterProfile) bool {
				return mean(p, "duration_min", 0) < 10 && mean(p, "distance_km", 0) < 2
			},
		},
		{
			Label: LabelLoops,
			Matches: func(p models.ClusterProfile) bool {
				return mean(p, "is_round_trip", 0) > 0.3
			},
		},
		{
			Label: LabelRegulars,
			Matches: func(p models.ClusterProfile) bool {
				return mean(p, "is_member", 0.5) > 0.6 && mean(p, "is_weekend", 0) < 0.5
			},
		},
		{
			Label:   LabelMixed,
			Matches: func(models.ClusterProfile) bool { return true },
		},
	}
}

// Interpret maps each cluster profile to a human-readable segment
// label by evaluating the rules in order.
func Interpret(profiles []models.ClusterProfile) map[int]string {
	return InterpretWith(profiles, DefaultRules())
}

// InterpretWith applies a custom ordered rule table.
func InterpretWith(profiles []models.ClusterProfile, rules []Rule) map[int]string {
	out := make(map[int]string, len(profiles))
	for _, p := range profiles {
		for _, r := range rules {
			if r.Matches(p) {
				out[p.Cluster] = r.Label
				break
			}
		}
	}
	return out
}

// mean reads a feature mean from the profile, falling back to a
// neutral default when the feature is absent.
func mean(p models.ClusterProfile, name string, fallback float64) float64 {
	if v, ok := p.Means[name]; ok {
		return v
	}
	return fallback
}
