// Package schedule implements the memory-decay review schedule: a fixed
// Ebbinghaus-style interval ladder that determines when a learning item
// is next due. All functions are pure; the package holds no state and
// performs no I/O.
package schedule

import (
	"time"

	"github.com/hdu-dev/wordvault/internal/domain"
)

// reviewIntervals is the decay ladder in days. Once an item has climbed
// past the end of the ladder the last interval repeats indefinitely.
var reviewIntervals = [...]int{1, 2, 4, 7, 15, 30, 60}

// IntervalDays returns the interval, in days, applied after the given
// number of completed reviews.
func IntervalDays(reviewCount int) int {
	if reviewCount < 0 {
		reviewCount = 0
	}
	if reviewCount >= len(reviewIntervals) {
		return reviewIntervals[len(reviewIntervals)-1]
	}
	return reviewIntervals[reviewCount]
}

// NextReviewDate returns the next review timestamp for an item reviewed
// at `from` with `reviewCount` completed reviews.
func NextReviewDate(from time.Time, reviewCount int) time.Time {
	return from.AddDate(0, 0, IntervalDays(reviewCount))
}

// IsDue reports whether the item should be reviewed now. The comparison
// is date-granular: an item whose next review falls anywhere on today's
// calendar date counts as due, even if `now` is earlier in the day than
// the stored time-of-day. Mastery is not considered here; excluding
// mastered items is the review-set builder's job.
func IsDue(item *domain.LearningItem, now time.Time) bool {
	return !startOfDay(item.NextReviewAt).After(startOfDay(now))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
