package service

import (
	"strings"

	"github.com/noah-isme/sales-report-api/internal/models"
)

// ApplyFilter returns the records matching every populated criterion, in
// their original order. The input slice is not modified.
func ApplyFilter(records []models.Report, f models.ReportFilter) []models.Report {
	if f.IsEmpty() {
		return records
	}
	user := strings.ToLower(f.User)
	region := strings.ToLower(f.Region)

	out := make([]models.Report, 0, len(records))
	for _, r := range records {
		if f.HasDate() && !r.Date.Equal(*f.Date) {
			continue
		}
		if f.HasStart() && r.Date.Before(*f.StartDate) {
			continue
		}
		if f.HasEnd() && r.Date.After(*f.EndDate) {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		if user != "" && !strings.Contains(strings.ToLower(r.User), user) {
			continue
		}
		if region != "" && !strings.Contains(strings.ToLower(r.Region), region) {
			continue
		}
		out = append(out, r)
	}
	return out
}
