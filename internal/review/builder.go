// Package review builds the set of learning items due for review. It is
// read-only over the item collection: filtering and counting reuse the
// same predicate so dashboard numbers can never drift from the due set.
package review

import (
	"sort"
	"time"

	"github.com/hdu-dev/wordvault/internal/domain"
	"github.com/hdu-dev/wordvault/internal/domain/schedule"
)

// Counts summarizes a collection for dashboards.
type Counts struct {
	Total      int `json:"total"`
	Mastered   int `json:"mastered"`
	Unmastered int `json:"unmastered"`
	DueToday   int `json:"due_today"`
}

// isReviewable is the single due-set predicate: not mastered and due.
func isReviewable(item *domain.LearningItem, now time.Time) bool {
	return !item.IsMastered && schedule.IsDue(item, now)
}

// DueToday returns the items due for review at `now`. Mastered items are
// excluded regardless of their next review time. No session cap is
// applied; capping is a caller concern. Order follows the input slice.
func DueToday(items []*domain.LearningItem, now time.Time) []*domain.LearningItem {
	due := make([]*domain.LearningItem, 0)
	for _, item := range items {
		if isReviewable(item, now) {
			due = append(due, item)
		}
	}
	return due
}

// SortByUrgency orders items most-overdue first (oldest NextReviewAt),
// preserving input order between items with equal review times. The
// slice is sorted in place and returned for convenience.
func SortByUrgency(items []*domain.LearningItem) []*domain.LearningItem {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].NextReviewAt.Before(items[b].NextReviewAt)
	})
	return items
}

// Count scans the collection once and returns dashboard counts. DueToday
// uses the same predicate as the due-set filter.
func Count(items []*domain.LearningItem, now time.Time) Counts {
	counts := Counts{Total: len(items)}
	for _, item := range items {
		if item.IsMastered {
			counts.Mastered++
		} else {
			counts.Unmastered++
		}
		if isReviewable(item, now) {
			counts.DueToday++
		}
	}
	return counts
}
