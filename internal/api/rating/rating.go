// Package rating computes the derived average score of a title.
//
// The rating is never stored: it is recomputed from the review set on every
// read. "No reviews" is an explicit absent value (nil), distinct from a low
// score, and must never be flattened to 0.
package rating

import "reviewhub/internal/api/models"

// Average returns the exact arithmetic mean of all present scores in the
// review set, or nil when no review carries a score. Unscored reviews are
// valid ledger entries and are simply skipped.
func Average(reviews []models.Review) *float64 {
	var sum, count float64
	for _, review := range reviews {
		if review.Score == nil {
			continue
		}
		sum += float64(*review.Score)
		count++
	}
	if count == 0 {
		return nil
	}
	mean := sum / count
	return &mean
}
