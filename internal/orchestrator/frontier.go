package orchestrator

// frontierEntry is one URL waiting to be crawled in a run.
type frontierEntry struct {
	rawURL        string
	normalizedURL string
	depth         int
	originDomain  string
}

// frontier is a FIFO queue, which makes traversal breadth-first.
type frontier struct {
	entries []frontierEntry
	head    int
}

func (f *frontier) push(e frontierEntry) {
	f.entries = append(f.entries, e)
}

func (f *frontier) pop() (frontierEntry, bool) {
	if f.head >= len(f.entries) {
		return frontierEntry{}, false
	}
	e := f.entries[f.head]
	f.entries[f.head] = frontierEntry{}
	f.head++
	if f.head == len(f.entries) {
		f.entries = f.entries[:0]
		f.head = 0
	}
	return e, true
}

func (f *frontier) len() int {
	return len(f.entries) - f.head
}
