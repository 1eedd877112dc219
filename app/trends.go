package app

import "github.com/trilakes/ghostradar/app/models"

// Metrics annotated with a trend label on the history endpoint.
var trendMetrics = []string{"interest_score", "ghost_probability"}

// trendThreshold is the minimum score delta considered a real move.
const trendThreshold = 5

func metricValue(s models.Scan, metric string) int {
	switch metric {
	case "interest_score":
		return s.InterestScore
	case "ghost_probability":
		return s.GhostProbability
	}
	return 0
}

func trendLabel(delta int) string {
	switch {
	case delta > trendThreshold:
		return "rising"
	case delta < -trendThreshold:
		return "falling"
	default:
		return "stable"
	}
}

// ComputeTrends labels each tracked metric by comparing the two newest scans.
// scans must be ordered newest-first. With fewer than two scans the map is
// empty: no trend is reported at all.
func ComputeTrends(scans []models.Scan) map[string]string {
	trends := map[string]string{}
	if len(scans) < 2 {
		return trends
	}
	newest, prev := scans[0], scans[1]
	for _, metric := range trendMetrics {
		delta := metricValue(newest, metric) - metricValue(prev, metric)
		trends[metric] = trendLabel(delta)
	}
	return trends
}
