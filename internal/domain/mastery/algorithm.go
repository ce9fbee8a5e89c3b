package mastery

import (
	"time"

	"github.com/hdu-dev/wordvault/internal/domain"
	"github.com/hdu-dev/wordvault/internal/domain/schedule"
)

// applyCorrect returns the item's next state after a correct answer.
//
// Behavior:
//   - Attempt and streak counters advance; the wrong streak resets.
//   - The review is appended to history and the next review is scheduled
//     one rung further up the decay ladder.
//   - Reaching the mastery threshold promotes the item. Counters keep
//     accumulating past the threshold for statistics; promotion is a
//     one-way latch here (demotion happens only on an incorrect answer
//     or an explicit override).
func applyCorrect(item *domain.LearningItem, now time.Time, params *Params) *domain.LearningItem {
	next := item.Clone()

	next.TotalAttempts++
	next.ConsecutiveCorrect++
	next.ConsecutiveWrong = 0

	next.ReviewHistory = append(next.ReviewHistory, now)
	next.ReviewCount = len(next.ReviewHistory)
	next.NextReviewAt = schedule.NextReviewDate(now, next.ReviewCount)

	if next.ConsecutiveCorrect >= params.MasteryThreshold {
		next.IsMastered = true
	}

	next.UpdatedAt = now
	return next
}

// applyIncorrect returns the item's next state after an incorrect answer.
//
// An error always restarts the decay clock: the next review is scheduled
// at the first ladder interval regardless of how far the item had
// climbed, and any mastery (automatic or manual) is revoked.
func applyIncorrect(item *domain.LearningItem, now time.Time) *domain.LearningItem {
	next := item.Clone()

	next.TotalAttempts++
	next.ErrorCount++
	next.ConsecutiveWrong++
	next.ConsecutiveCorrect = 0

	next.ReviewHistory = append(next.ReviewHistory, now)
	next.ReviewCount = len(next.ReviewHistory)
	next.NextReviewAt = schedule.NextReviewDate(now, 0)

	next.IsMastered = false
	next.UpdatedAt = now
	return next
}
