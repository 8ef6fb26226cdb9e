package domain

import "time"

// ResultSet is what the search engine returns for one query
type ResultSet struct {
	Query string
	Items []string
	Took  time.Duration // time spent inside the engine
}

// Len returns the number of results
func (r ResultSet) Len() int {
	return len(r.Items)
}

// Empty reports whether the search found nothing
func (r ResultSet) Empty() bool {
	return len(r.Items) == 0
}
