package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"artix/contexts/agent-treasury/allowance-service/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

type DelegationStore struct {
	mu          sync.RWMutex
	delegations map[common.Address]entities.Delegation
}

func NewDelegationStore() *DelegationStore {
	return &DelegationStore{delegations: make(map[common.Address]entities.Delegation)}
}

func (s *DelegationStore) GetDelegation(_ context.Context, account common.Address) (entities.Delegation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delegation, ok := s.delegations[account]
	return delegation, ok, nil
}

func (s *DelegationStore) SaveDelegation(_ context.Context, delegation entities.Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegations[delegation.Account] = delegation
	return nil
}

func (s *DelegationStore) TouchDelegation(_ context.Context, account common.Address, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delegation, ok := s.delegations[account]
	if !ok {
		return nil
	}
	if at.After(delegation.LastSeen) {
		delegation.LastSeen = at
		s.delegations[account] = delegation
	}
	return nil
}

func (s *DelegationStore) ListIdleDelegations(_ context.Context, before time.Time, limit int) ([]entities.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Delegation, 0)
	for _, delegation := range s.delegations {
		if delegation.LastSeen.Before(before) {
			out = append(out, delegation)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.Before(out[j].LastSeen) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *DelegationStore) DeleteDelegation(_ context.Context, account common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.delegations, account)
	return nil
}

func (s *DelegationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.delegations)
}

// Clock reads the wall clock until Set is called.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Now().UTC()
	}
	c.now = c.now.Add(d)
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		return time.Now().UTC()
	}
	return c.now
}
