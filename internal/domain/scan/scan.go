package scan

import (
	"sort"
	"time"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/risk"
)

// TrendDateLayout formats trend point dates.
const TrendDateLayout = "2006-01-02 15:04"

// Record is a persisted probe scan.
type Record struct {
	ID        int               `json:"id"`
	URL       string            `json:"url"`
	ScanDate  time.Time         `json:"scan_date"`
	RiskScore int               `json:"risk_score"`
	Findings  []finding.Finding `json:"scan_details"`
	Analysis  risk.Report       `json:"ai_analysis"`
}

// NewRecord builds an unsaved record stamped with the current UTC time.
func NewRecord(url string, findings []finding.Finding, analysis risk.Report) *Record {
	return &Record{
		URL:       url,
		ScanDate:  time.Now().UTC(),
		RiskScore: analysis.RiskScore,
		Findings:  findings,
		Analysis:  analysis,
	}
}

// TrendPoint is one entry of the risk score time series.
type TrendPoint struct {
	Date      string `json:"date"`
	RiskScore int    `json:"risk_score"`
}

// Analytics aggregates the scan history.
type Analytics struct {
	Trends       []TrendPoint   `json:"trends"`
	Distribution map[string]int `json:"vulnerability_distribution"`
}

// distributionBuckets are the severities reported in Analytics. Findings of
// any other severity are counted as Info.
var distributionBuckets = []finding.Severity{
	finding.SeverityHigh,
	finding.SeverityMedium,
	finding.SeverityLow,
	finding.SeverityInfo,
}

// BuildAnalytics returns the last trendPoints scores in chronological order
// and the severity distribution across every record.
func BuildAnalytics(records []*Record, trendPoints int) Analytics {
	dist := make(map[string]int, len(distributionBuckets))
	for _, b := range distributionBuckets {
		dist[string(b)] = 0
	}

	sorted := append([]*Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScanDate.Before(sorted[j].ScanDate)
	})

	for _, rec := range sorted {
		for _, f := range rec.Findings {
			key := string(f.Severity)
			if _, ok := dist[key]; !ok {
				key = string(finding.SeverityInfo)
			}
			dist[key]++
		}
	}

	recent := sorted
	if trendPoints >= 0 && len(recent) > trendPoints {
		recent = recent[len(recent)-trendPoints:]
	}
	trends := make([]TrendPoint, 0, len(recent))
	for _, rec := range recent {
		trends = append(trends, TrendPoint{
			Date:      rec.ScanDate.Format(TrendDateLayout),
			RiskScore: rec.RiskScore,
		})
	}

	return Analytics{Trends: trends, Distribution: dist}
}
