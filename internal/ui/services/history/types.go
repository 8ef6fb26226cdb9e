package history

import "time"

// Entry is one finished search
type Entry struct {
	Query  string
	Count  int
	Took   time.Duration
	Failed bool
}

// State holds the recorded searches and the recall position
type State struct {
	Entries []Entry // newest first
	Cursor  int     // index into Entries being recalled, -1 when not recalling
}
