package notify

import "sync"

// failureCounter tracks consecutive transport failures per notification
// key. In-process state is sufficient here: escalation is best-effort
// and each process escalating independently is acceptable.
type failureCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *failureCounter) record(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[key]++
	return c.counts[key]
}

func (c *failureCounter) clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, key)
}
