package stats

import (
	"strings"

	"restroom-status-backend/internal/model"
	"restroom-status-backend/internal/store"
)

// GroupSummary is the occupancy count for one group label bucket.
type GroupSummary struct {
	Occupied int `json:"occupied"`
	Total    int `json:"total"`
}

// SummarizeGroup buckets facilities whose name contains the label
// (case-insensitive) and counts how many of them are occupied. Facilities
// matching no label are excluded from every bucket.
func SummarizeGroup(facilities []model.Facility, label string) GroupSummary {
	needle := strings.ToLower(label)
	var summary GroupSummary
	for _, f := range facilities {
		if !strings.Contains(strings.ToLower(f.Name), needle) {
			continue
		}
		summary.Total++
		if f.Occupied() {
			summary.Occupied++
		}
	}
	return summary
}

// FilterAll is the sentinel value that disables a filter dimension.
const FilterAll = "all"

// FilterRecords narrows an already-fetched history by exact facility id
// and/or exact exit condition. Dimensions combine with AND; "all" or the
// empty string disables a dimension.
func FilterRecords(records []store.CompletedRecord, facilityID, condition string) []store.CompletedRecord {
	filtered := make([]store.CompletedRecord, 0, len(records))
	for _, r := range records {
		if facilityID != "" && facilityID != FilterAll && r.FacilityID != facilityID {
			continue
		}
		if condition != "" && condition != FilterAll {
			if r.ExitCondition == nil || string(*r.ExitCondition) != condition {
				continue
			}
		}
		filtered = append(filtered, r)
	}
	return filtered
}
