package models

import "time"

// AvailabilityBlock is a contiguous free window of at least the requested
// duration, free of every busy period after buffer expansion.
type AvailabilityBlock struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	DayOfWeek int       `json:"dayOfWeek"`
	Date      string    `json:"date"` // YYYY-MM-DD
}

// DurationMinutes returns the block length in whole minutes.
func (b AvailabilityBlock) DurationMinutes() int {
	return int(b.EndTime.Sub(b.StartTime) / time.Minute)
}

// SlotRecommendation is one scored candidate slot sized exactly to the
// requested duration, with human-readable scoring reasons.
type SlotRecommendation struct {
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	ConfidenceScore int       `json:"confidenceScore"` // 0-100
	Reasons         []string  `json:"reasons"`
	Date            string    `json:"date"` // YYYY-MM-DD
}
