package spacedrep

import "github.com/abhisek/cognitioflux/internal/apperr"

// Quality is an SM-2 recall grade from 0 (blackout) to 5 (perfect).
type Quality int

const (
	QualityBlackout Quality = iota
	QualityIncorrect
	QualityIncorrectEasyRecall
	QualityCorrectDifficult
	QualityCorrectHesitant
	QualityPerfect
)

// PassingQuality is the lowest grade that keeps a repetition streak alive.
const PassingQuality = QualityCorrectDifficult

// Valid reports whether q lies in [0, 5].
func (q Quality) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// Passed reports whether q counts as a successful recall.
func (q Quality) Passed() bool {
	return q >= PassingQuality
}

// MaxDifficultyRating is the upper bound of a learner's self-reported
// difficulty. Zero means the learner did not rate the lesson.
const MaxDifficultyRating = 5

// correctByDifficulty and incorrectByDifficulty are indexed by difficulty rating.
var (
	correctByDifficulty   = [...]Quality{4, 5, 5, 4, 3, 3}
	incorrectByDifficulty = [...]Quality{1, 2, 2, 1, 0, 0}
)

// QualityFromAnswer converts a lesson completion outcome into an SM-2 grade.
// A correct quiz answer grades 3-5, lower when the learner found the lesson
// harder. An incorrect answer grades 0-2, lower when the learner found it
// harder, so hard misses reset most aggressively.
func QualityFromAnswer(correct bool, difficulty int) (Quality, error) {
	if difficulty < 0 || difficulty > MaxDifficultyRating {
		return 0, apperr.Validation("difficulty_rating", "must be between 0 and 5")
	}
	if correct {
		return correctByDifficulty[difficulty], nil
	}
	return incorrectByDifficulty[difficulty], nil
}
