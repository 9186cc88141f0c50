package models

// PointsReport is the response of the points report
type PointsReport struct {
	Points float64 `json:"points"`
}

// Summary holds the dashboard figures for the current week and month
type Summary struct {
	WeeklyPoints       float64 `json:"weeklyPoints"`
	MonthlyPoints      float64 `json:"monthlyPoints"`
	CompletedActions   int     `json:"completedActions"`
	PendingSuggestions int     `json:"pendingSuggestions"`
}
