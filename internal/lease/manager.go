// Package lease implements per-(trip, seat) exclusive leases on top of
// Redis.  Mutual exclusion rests entirely on the atomicity of SET NX
// with a TTL: there is no in-process mutex, so the guarantees hold
// across arbitrarily many processes.  A per-trip set of currently
// leased seat numbers is maintained for display purposes only; the
// per-seat key is always the authority.
package lease

import (
    "context"
    "fmt"
    "sort"
    "time"

    "github.com/redis/go-redis/v9"
)

// Failure reasons reported for individual seats.
const (
    ReasonLockedByAnother = "locked_by_another_holder"
    ReasonAlreadyYours    = "already_locked_by_you"
    ReasonNotLocked       = "not_locked"
)

// releaseScript deletes the per-seat key only when its value still
// matches the holder.  Returns 1 on delete, -1 when another holder
// owns the lease, 0 when no live lease exists.
var releaseScript = redis.NewScript(`
    local v = redis.call('GET', KEYS[1])
    if v == false then
        return 0
    end
    if v == ARGV[1] then
        redis.call('DEL', KEYS[1])
        return 1
    end
    return -1
`)

// extendScript resets the TTL only when the holder still owns the
// lease.  Same return convention as releaseScript.
var extendScript = redis.NewScript(`
    local v = redis.call('GET', KEYS[1])
    if v == false then
        return 0
    end
    if v == ARGV[1] then
        redis.call('PEXPIRE', KEYS[1], ARGV[2])
        return 1
    end
    return -1
`)

// SeatFailure describes one seat that could not be acquired, released
// or extended.  HeldBy is populated only for acquisition conflicts.
type SeatFailure struct {
    SeatNumber string `json:"seat_number"`
    Reason     string `json:"reason"`
    HeldBy     string `json:"held_by,omitempty"`
}

// AcquireResult lists the seats that were leased and those that were
// not.  Seats already leased by the same holder count as locked: the
// operation is a no-op for them, not a conflict.
type AcquireResult struct {
    Locked []string
    Failed []SeatFailure
}

// ReleaseResult lists the seats whose lease was removed and those
// that were not.  A seat that was never leased, or whose lease had
// already expired, reports not_locked; callers treat that as
// non-fatal so release stays idempotent.
type ReleaseResult struct {
    Released []string
    Failed   []SeatFailure
}

// ExtendResult lists the seats whose TTL was reset and those that
// were not.
type ExtendResult struct {
    Extended []string
    Failed   []SeatFailure
}

// Manager wraps a Redis client with seat-lease semantics.  Each seat
// of each trip maps to one key whose value is the opaque holder id.
// Acquisition of multiple seats is deliberately NOT atomic as a unit:
// each seat is leased independently and callers that need
// all-or-nothing semantics must release what they got on partial
// failure.
type Manager struct {
    rdb *redis.Client
}

// NewManager returns a Manager bound to the provided Redis client.
func NewManager(rdb *redis.Client) *Manager {
    if rdb == nil {
        panic("nil redis client passed to lease.NewManager")
    }
    return &Manager{rdb: rdb}
}

func seatKey(tripID uint64, seat string) string {
    return fmt.Sprintf("lease:trip:%d:seat:%s", tripID, seat)
}

func indexKey(tripID uint64) string {
    return fmt.Sprintf("lease:trip:%d:seats", tripID)
}

// Acquire attempts to lease every requested seat for holderID with
// the given TTL.  Each seat is an independent SET NX; a seat already
// leased by holderID is reported as locked without touching its TTL.
// The per-trip index is updated best-effort after each win.
func (m *Manager) Acquire(ctx context.Context, tripID uint64, seats []string, holderID string, ttl time.Duration) (AcquireResult, error) {
    var res AcquireResult
    for _, seat := range seats {
        key := seatKey(tripID, seat)
        ok, err := m.rdb.SetNX(ctx, key, holderID, ttl).Result()
        if err != nil {
            return res, fmt.Errorf("lease acquire %s: %w", key, err)
        }
        if ok {
            res.Locked = append(res.Locked, seat)
            m.indexAdd(ctx, tripID, seat, ttl)
            continue
        }
        owner, err := m.rdb.Get(ctx, key).Result()
        if err == redis.Nil {
            // Key expired between SETNX and GET; retry once.
            ok, err = m.rdb.SetNX(ctx, key, holderID, ttl).Result()
            if err != nil {
                return res, fmt.Errorf("lease acquire %s: %w", key, err)
            }
            if ok {
                res.Locked = append(res.Locked, seat)
                m.indexAdd(ctx, tripID, seat, ttl)
            } else {
                res.Failed = append(res.Failed, SeatFailure{SeatNumber: seat, Reason: ReasonLockedByAnother})
            }
            continue
        }
        if err != nil {
            return res, fmt.Errorf("lease owner %s: %w", key, err)
        }
        if owner == holderID {
            // Holder retrying its own hold is a no-op success.
            res.Locked = append(res.Locked, seat)
            continue
        }
        res.Failed = append(res.Failed, SeatFailure{SeatNumber: seat, Reason: ReasonLockedByAnother, HeldBy: owner})
    }
    return res, nil
}

// Release removes the lease of every seat currently owned by
// holderID.  Seats owned by someone else report
// locked_by_another_holder; seats with no live lease report
// not_locked.  Both are per-seat outcomes, never an error return, so
// the call is idempotent from the caller's point of view.
func (m *Manager) Release(ctx context.Context, tripID uint64, seats []string, holderID string) (ReleaseResult, error) {
    var res ReleaseResult
    for _, seat := range seats {
        key := seatKey(tripID, seat)
        n, err := releaseScript.Run(ctx, m.rdb, []string{key}, holderID).Int()
        if err != nil {
            return res, fmt.Errorf("lease release %s: %w", key, err)
        }
        switch n {
        case 1:
            res.Released = append(res.Released, seat)
            m.indexRemove(ctx, tripID, seat)
        case 0:
            res.Failed = append(res.Failed, SeatFailure{SeatNumber: seat, Reason: ReasonNotLocked})
            m.indexRemove(ctx, tripID, seat)
        default:
            res.Failed = append(res.Failed, SeatFailure{SeatNumber: seat, Reason: ReasonLockedByAnother})
        }
    }
    return res, nil
}

// Extend resets the TTL of every seat still owned by holderID.  Seats
// that expired, or were re-acquired by another holder in the
// meantime, are reported in Failed.
func (m *Manager) Extend(ctx context.Context, tripID uint64, seats []string, holderID string, ttl time.Duration) (ExtendResult, error) {
    var res ExtendResult
    for _, seat := range seats {
        key := seatKey(tripID, seat)
        n, err := extendScript.Run(ctx, m.rdb, []string{key}, holderID, ttl.Milliseconds()).Int()
        if err != nil {
            return res, fmt.Errorf("lease extend %s: %w", key, err)
        }
        switch n {
        case 1:
            res.Extended = append(res.Extended, seat)
            m.indexAdd(ctx, tripID, seat, ttl)
        case 0:
            res.Failed = append(res.Failed, SeatFailure{SeatNumber: seat, Reason: ReasonNotLocked})
        default:
            res.Failed = append(res.Failed, SeatFailure{SeatNumber: seat, Reason: ReasonLockedByAnother})
        }
    }
    return res, nil
}

// ListLeased returns the seat numbers currently recorded in the
// per-trip index, sorted.  The index is advisory: members whose
// per-seat key has expired are pruned lazily here, and a seat missing
// from the index but present as a live key must still be treated as
// leased by correctness-sensitive checks (which always go through the
// per-seat key).
func (m *Manager) ListLeased(ctx context.Context, tripID uint64) ([]string, error) {
    members, err := m.rdb.SMembers(ctx, indexKey(tripID)).Result()
    if err != nil {
        return nil, fmt.Errorf("lease index %d: %w", tripID, err)
    }
    leased := make([]string, 0, len(members))
    for _, seat := range members {
        n, err := m.rdb.Exists(ctx, seatKey(tripID, seat)).Result()
        if err != nil {
            return nil, fmt.Errorf("lease exists %d/%s: %w", tripID, seat, err)
        }
        if n == 0 {
            m.indexRemove(ctx, tripID, seat)
            continue
        }
        leased = append(leased, seat)
    }
    sort.Strings(leased)
    return leased, nil
}

// OwnerOf returns the holder id currently leasing the seat, or the
// empty string when no live lease exists.
func (m *Manager) OwnerOf(ctx context.Context, tripID uint64, seat string) (string, error) {
    owner, err := m.rdb.Get(ctx, seatKey(tripID, seat)).Result()
    if err == redis.Nil {
        return "", nil
    }
    if err != nil {
        return "", fmt.Errorf("lease owner %d/%s: %w", tripID, seat, err)
    }
    return owner, nil
}

// RemainingTTL returns how long the seat's lease has left.  Zero
// means no live lease.
func (m *Manager) RemainingTTL(ctx context.Context, tripID uint64, seat string) (time.Duration, error) {
    d, err := m.rdb.PTTL(ctx, seatKey(tripID, seat)).Result()
    if err != nil {
        return 0, fmt.Errorf("lease ttl %d/%s: %w", tripID, seat, err)
    }
    if d < 0 {
        return 0, nil
    }
    return d, nil
}

// indexAdd and indexRemove maintain the advisory per-trip set.  Both
// are best-effort; index errors never fail the lease operation that
// triggered them.
func (m *Manager) indexAdd(ctx context.Context, tripID uint64, seat string, ttl time.Duration) {
    key := indexKey(tripID)
    _ = m.rdb.SAdd(ctx, key, seat).Err()
    // Keep the index alive at least as long as its newest member.
    _ = m.rdb.Expire(ctx, key, ttl+time.Minute).Err()
}

func (m *Manager) indexRemove(ctx context.Context, tripID uint64, seat string) {
    _ = m.rdb.SRem(ctx, indexKey(tripID), seat).Err()
}
