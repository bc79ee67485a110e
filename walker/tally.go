package walker

import "sort"

// Tally counts diagnostic messages by occurrence.
type Tally map[string]int

// Add records one occurrence of msg.
func (t Tally) Add(msg string) {
	t[msg]++
}

// Merge adds every count of o into t.
func (t Tally) Merge(o Tally) {
	for msg, n := range o {
		t[msg] += n
	}
}

// Total returns the number of recorded occurrences.
func (t Tally) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Keys returns the messages in sorted order.
func (t Tally) Keys() []string {
	keys := make([]string, 0, len(t))
	for msg := range t {
		keys = append(keys, msg)
	}
	sort.Strings(keys)
	return keys
}
