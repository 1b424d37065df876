package model

// Rank is the member tier derived from accepted chapters.
type Rank string

// Rank tiers.
const (
	RankMember Rank = "Member"
	RankPro    Rank = "Pro"
	RankLegend Rank = "Legend"
)

// Rank thresholds in accepted chapters.
const (
	ProThreshold    int64 = 15
	LegendThreshold int64 = 30
)

// RankFor returns the tier for the given number of accepted chapters.
func RankFor(acceptedChapters int64) Rank {
	switch {
	case acceptedChapters >= LegendThreshold:
		return RankLegend
	case acceptedChapters >= ProThreshold:
		return RankPro
	default:
		return RankMember
	}
}
