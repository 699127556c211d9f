package poller

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// Decision is the dedup gate's verdict for one feed entry.
type Decision int

const (
	Insert Decision = iota
	Skip
)

func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "insert"
}

// ReadingLookup answers whether an entry id is already persisted.
type ReadingLookup interface {
	ReadingExists(ctx context.Context, entryID int64) (bool, error)
}

// DedupGate decides whether a feed entry still needs inserting. Entry ids seen
// recently are remembered in memory, since the feed returns a rolling window
// and most entries of every poll were already stored by the previous one.
// The unique index on entry_id stays the authority; this is only a fast path.
type DedupGate struct {
	lookup ReadingLookup
	seen   *cache.Cache
}

// NewDedupGate creates a gate that remembers entry ids for ttl.
func NewDedupGate(lookup ReadingLookup, ttl time.Duration) *DedupGate {
	return &DedupGate{
		lookup: lookup,
		seen:   cache.New(ttl, 2*ttl),
	}
}

// Check returns Skip when the entry is known to be stored. A lookup failure is
// returned with Insert so the caller can fall back on the storage constraint.
func (g *DedupGate) Check(ctx context.Context, entryID int64) (Decision, error) {
	key := strconv.FormatInt(entryID, 10)
	if _, found := g.seen.Get(key); found {
		return Skip, nil
	}

	exists, err := g.lookup.ReadingExists(ctx, entryID)
	if err != nil {
		return Insert, err
	}
	if exists {
		g.seen.SetDefault(key, struct{}{})
		return Skip, nil
	}
	return Insert, nil
}

// Remember records that entryID is now stored.
func (g *DedupGate) Remember(entryID int64) {
	g.seen.SetDefault(strconv.FormatInt(entryID, 10), struct{}{})
}
