package commands

import (
	"sort"
	"sync"

	"artix/contexts/meme-contest/contest-service/domain/entities"
)

// AttemptJournal holds mint attempts the repository refused to save. A
// registration recorded here is resumed instead of registered again until a
// later save reaches the repository. The journal is process local.
type AttemptJournal struct {
	mu       sync.Mutex
	attempts map[uint64]entities.MintAttempt
}

func NewAttemptJournal() *AttemptJournal {
	return &AttemptJournal{attempts: make(map[uint64]entities.MintAttempt)}
}

func (j *AttemptJournal) remember(attempt entities.MintAttempt) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts[attempt.EntryID] = attempt
}

func (j *AttemptJournal) forget(entryID uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.attempts, entryID)
}

func (j *AttemptJournal) lookup(entryID uint64) (entities.MintAttempt, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	attempt, ok := j.attempts[entryID]
	return attempt, ok
}

// Orphans returns unsaved orphans tried fewer than maxAttempts times, oldest
// first. maxAttempts <= 0 disables the cap.
func (j *AttemptJournal) Orphans(maxAttempts int) []entities.MintAttempt {
	j.mu.Lock()
	defer j.mu.Unlock()
	items := make([]entities.MintAttempt, 0, len(j.attempts))
	for _, attempt := range j.attempts {
		if attempt.Orphaned() && (maxAttempts <= 0 || attempt.Attempts < maxAttempts) {
			items = append(items, attempt)
		}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].UpdatedAt.Before(items[b].UpdatedAt) })
	return items
}
