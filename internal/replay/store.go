// Package replay records completed games as replayable move logs and keeps
// a monotonically growing index of (index, player1, player2) entries.
package replay

import (
	"context"
	"strconv"
	"strings"
)

// IndexEntry is written once per completed game and never mutated.
type IndexEntry struct {
	Index   int
	Player1 string
	Player2 string
}

// Store persists move logs. Save assigns the next index, appends the index
// entry and persists the record; both writes happen synchronously inline
// with request handling.
type Store interface {
	Save(ctx context.Context, steps []string, player1, player2 string) (int, error)
	// ListIndicesForPlayer returns, in index order, every index whose entry
	// names the player as either participant.
	ListIndicesForPlayer(ctx context.Context, name string) ([]int, error)
	// LoadSteps returns the stored record's lines verbatim, or an empty
	// slice when no record exists for the index.
	LoadSteps(ctx context.Context, index int) ([]string, error)
	// Entries returns the full index in index order.
	Entries(ctx context.Context) ([]IndexEntry, error)
	Close() error
}

func (e IndexEntry) line() string {
	return strconv.Itoa(e.Index) + "," + e.Player1 + "," + e.Player2
}

func parseEntry(line string) (IndexEntry, bool) {
	parts := strings.SplitN(strings.TrimRight(line, "\r"), ",", 3)
	if len(parts) != 3 {
		return IndexEntry{}, false
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return IndexEntry{}, false
	}
	return IndexEntry{Index: idx, Player1: parts[1], Player2: parts[2]}, true
}
