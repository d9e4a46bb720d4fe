package service

// TrackedKeys reports how many per-key write locks are held or awaited.
func (s *DraftService) TrackedKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
