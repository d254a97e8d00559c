package repository

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/okian/trainerscope/pkg/metrics"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank    int
	UserID  string
	TotalXP int64
}

// Treap-based, in-memory XP leaderboard.
//
// Ordering: total XP DESC, then user id ASC. "less" means ranks earlier, so
// an in-order traversal yields the leaderboard from best to worst. A second
// treap holds one node per distinct XP value so dense ranks are a count of
// the distinct totals above a user.

type node struct {
	id    string
	xp    int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aXP, aID) should appear before (bXP, bID).
func less(aXP int64, aID string, bXP int64, bID string) bool {
	if aXP != bXP {
		return aXP > bXP
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priority hashes the key so tree shape is deterministic for a given set.
func priority(id string, xp int64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	_, _ = h.Write([]byte(strconv.FormatInt(xp, 10)))
	return h.Sum64()
}

func insert(n *node, id string, xp int64) *node {
	if n == nil {
		return &node{id: id, xp: xp, prio: priority(id, xp), size: 1}
	}
	if less(xp, id, n.xp, n.id) {
		n.left = insert(n.left, id, xp)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, xp)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, xp int64) *node {
	if n == nil {
		return nil
	}
	if xp == n.xp && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, xp)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, xp)
		}
	} else if less(xp, id, n.xp, n.id) {
		n.left = deleteNode(n.left, id, xp)
	} else {
		n.right = deleteNode(n.right, id, xp)
	}
	fix(n)
	return n
}

// countBefore returns the number of nodes ordered strictly before (xp, id).
func countBefore(n *node, xp int64, id string) int {
	count := 0
	for n != nil {
		if less(n.xp, n.id, xp, id) {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit entries in rank order. Ranks are dense:
// the first entry is rank 1 and the rank advances when XP changes.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		rank := 1
		if k := len(*out); k > 0 {
			prev := (*out)[k-1]
			rank = prev.Rank
			if prev.TotalXP != n.xp {
				rank++
			}
		}
		*out = append(*out, Entry{Rank: rank, UserID: n.id, TotalXP: n.xp})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// Leaderboard ranks users by total XP.
type Leaderboard struct {
	mu       sync.RWMutex
	root     *node
	distinct *node
	tally    map[int64]int // users per XP total
	byID     map[string]int64

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	stopOnce              sync.Once
}

// LeaderboardOption applies a configuration option to the Leaderboard.
type LeaderboardOption func(*Leaderboard)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) LeaderboardOption {
	return func(l *Leaderboard) {
		if interval > 0 {
			l.metricsUpdateInterval = interval
		}
	}
}

// NewLeaderboard constructs an empty leaderboard and starts its metrics
// updater, which stops when ctx is done or Close is called.
func NewLeaderboard(ctx context.Context, opts ...LeaderboardOption) *Leaderboard {
	l := &Leaderboard{
		tally:                 make(map[int64]int),
		byID:                  make(map[string]int64),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.startMetricsUpdater(ctx)
	return l
}

func (l *Leaderboard) startMetricsUpdater(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateLeaderboardSize(l.Count(ctx))
			}
		}
	}()
}

// Close stops the metrics updater.
func (l *Leaderboard) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

func (l *Leaderboard) addTotal(xp int64) {
	if l.tally[xp] == 0 {
		l.distinct = insert(l.distinct, "", xp)
	}
	l.tally[xp]++
}

func (l *Leaderboard) removeTotal(xp int64) {
	l.tally[xp]--
	if l.tally[xp] <= 0 {
		delete(l.tally, xp)
		l.distinct = deleteNode(l.distinct, "", xp)
	}
}

// UpsertXP sets the total of userID in O(log n) expected time. Totals only
// grow, so a value below the current one is a stale write and is ignored.
func (l *Leaderboard) UpsertXP(_ context.Context, userID string, totalXP int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	old, ok := l.byID[userID]
	if ok {
		if totalXP <= old {
			return nil
		}
		l.root = deleteNode(l.root, userID, old)
		l.removeTotal(old)
	}
	l.byID[userID] = totalXP
	l.root = insert(l.root, userID, totalXP)
	l.addTotal(totalXP)

	metrics.RecordLeaderboardUpdate()
	return nil
}

// Rank returns the dense rank and total of userID in O(log n).
// Returns ErrNotFound if the user has no XP.
func (l *Leaderboard) Rank(_ context.Context, userID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("leaderboard_rank", float64(time.Since(start).Microseconds())/1000)
	}()

	l.mu.RLock()
	defer l.mu.RUnlock()

	xp, ok := l.byID[userID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	// Every distinct total above xp sorts before (xp, "").
	return Entry{Rank: countBefore(l.distinct, xp, "") + 1, UserID: userID, TotalXP: xp}, nil
}

// TopN returns the top n entries ordered by total XP desc.
func (l *Leaderboard) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(l.byID)))
	collectTopN(l.root, n, &out)
	return out, nil
}

// Count returns the number of ranked users.
func (l *Leaderboard) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}
