package lease

import (
    "context"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const holdTTL = 15 * time.Minute

func TestAcquire_LeasesEveryFreeSeat(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    for _, seat := range []string{"A1", "A2"} {
        mock.ExpectSetNX("lease:trip:7:seat:"+seat, "holder-1", holdTTL).SetVal(true)
        mock.ExpectSAdd("lease:trip:7:seats", seat).SetVal(1)
        mock.ExpectExpire("lease:trip:7:seats", holdTTL+time.Minute).SetVal(true)
    }

    res, err := m.Acquire(context.Background(), 7, []string{"A1", "A2"}, "holder-1", holdTTL)
    require.NoError(t, err)
    assert.Equal(t, []string{"A1", "A2"}, res.Locked)
    assert.Empty(t, res.Failed)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_ReportsContestedSeatWithOwner(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    mock.ExpectSetNX("lease:trip:7:seat:A1", "holder-1", holdTTL).SetVal(true)
    mock.ExpectSAdd("lease:trip:7:seats", "A1").SetVal(1)
    mock.ExpectExpire("lease:trip:7:seats", holdTTL+time.Minute).SetVal(true)

    mock.ExpectSetNX("lease:trip:7:seat:A2", "holder-1", holdTTL).SetVal(false)
    mock.ExpectGet("lease:trip:7:seat:A2").SetVal("holder-2")

    res, err := m.Acquire(context.Background(), 7, []string{"A1", "A2"}, "holder-1", holdTTL)
    require.NoError(t, err)
    assert.Equal(t, []string{"A1"}, res.Locked)
    require.Len(t, res.Failed, 1)
    assert.Equal(t, "A2", res.Failed[0].SeatNumber)
    assert.Equal(t, ReasonLockedByAnother, res.Failed[0].Reason)
    assert.Equal(t, "holder-2", res.Failed[0].HeldBy)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_OwnSeatIsANoOpSuccess(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    mock.ExpectSetNX("lease:trip:7:seat:A1", "holder-1", holdTTL).SetVal(false)
    mock.ExpectGet("lease:trip:7:seat:A1").SetVal("holder-1")

    res, err := m.Acquire(context.Background(), 7, []string{"A1"}, "holder-1", holdTTL)
    require.NoError(t, err)
    assert.Equal(t, []string{"A1"}, res.Locked)
    assert.Empty(t, res.Failed)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_RetriesWhenKeyExpiresMidCheck(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    mock.ExpectSetNX("lease:trip:7:seat:A1", "holder-1", holdTTL).SetVal(false)
    mock.ExpectGet("lease:trip:7:seat:A1").RedisNil()
    mock.ExpectSetNX("lease:trip:7:seat:A1", "holder-1", holdTTL).SetVal(true)
    mock.ExpectSAdd("lease:trip:7:seats", "A1").SetVal(1)
    mock.ExpectExpire("lease:trip:7:seats", holdTTL+time.Minute).SetVal(true)

    res, err := m.Acquire(context.Background(), 7, []string{"A1"}, "holder-1", holdTTL)
    require.NoError(t, err)
    assert.Equal(t, []string{"A1"}, res.Locked)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_OnlyOwnerRemovesTheLease(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    mock.ExpectEvalSha(releaseScript.Hash(), []string{"lease:trip:7:seat:A1"}, "holder-1").SetVal(int64(1))
    mock.ExpectSRem("lease:trip:7:seats", "A1").SetVal(1)

    mock.ExpectEvalSha(releaseScript.Hash(), []string{"lease:trip:7:seat:A2"}, "holder-1").SetVal(int64(-1))

    mock.ExpectEvalSha(releaseScript.Hash(), []string{"lease:trip:7:seat:A3"}, "holder-1").SetVal(int64(0))
    mock.ExpectSRem("lease:trip:7:seats", "A3").SetVal(0)

    res, err := m.Release(context.Background(), 7, []string{"A1", "A2", "A3"}, "holder-1")
    require.NoError(t, err)
    assert.Equal(t, []string{"A1"}, res.Released)
    require.Len(t, res.Failed, 2)
    assert.Equal(t, ReasonLockedByAnother, res.Failed[0].Reason)
    assert.Equal(t, ReasonNotLocked, res.Failed[1].Reason)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtend_ResetsTTLForOwnedSeatsOnly(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    ttl := 20 * time.Minute
    mock.ExpectEvalSha(extendScript.Hash(), []string{"lease:trip:7:seat:A1"},
        "holder-1", ttl.Milliseconds()).SetVal(int64(1))
    mock.ExpectSAdd("lease:trip:7:seats", "A1").SetVal(0)
    mock.ExpectExpire("lease:trip:7:seats", ttl+time.Minute).SetVal(true)

    mock.ExpectEvalSha(extendScript.Hash(), []string{"lease:trip:7:seat:A2"},
        "holder-1", ttl.Milliseconds()).SetVal(int64(0))

    res, err := m.Extend(context.Background(), 7, []string{"A1", "A2"}, "holder-1", ttl)
    require.NoError(t, err)
    assert.Equal(t, []string{"A1"}, res.Extended)
    require.Len(t, res.Failed, 1)
    assert.Equal(t, "A2", res.Failed[0].SeatNumber)
    assert.Equal(t, ReasonNotLocked, res.Failed[0].Reason)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLeased_PrunesExpiredIndexEntries(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    mock.ExpectSMembers("lease:trip:7:seats").SetVal([]string{"B2", "A1"})
    mock.ExpectExists("lease:trip:7:seat:B2").SetVal(1)
    mock.ExpectExists("lease:trip:7:seat:A1").SetVal(0)
    mock.ExpectSRem("lease:trip:7:seats", "A1").SetVal(1)

    leased, err := m.ListLeased(context.Background(), 7)
    require.NoError(t, err)
    assert.Equal(t, []string{"B2"}, leased)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerOf(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    mock.ExpectGet("lease:trip:7:seat:A1").SetVal("holder-2")
    owner, err := m.OwnerOf(context.Background(), 7, "A1")
    require.NoError(t, err)
    assert.Equal(t, "holder-2", owner)

    mock.ExpectGet("lease:trip:7:seat:A2").RedisNil()
    owner, err = m.OwnerOf(context.Background(), 7, "A2")
    require.NoError(t, err)
    assert.Empty(t, owner)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemainingTTL_ZeroWhenNoLease(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    m := NewManager(rdb)

    mock.ExpectPTTL("lease:trip:7:seat:A1").SetVal(90 * time.Second)
    d, err := m.RemainingTTL(context.Background(), 7, "A1")
    require.NoError(t, err)
    assert.Equal(t, 90*time.Second, d)

    mock.ExpectPTTL("lease:trip:7:seat:A2").SetVal(-2 * time.Millisecond)
    d, err = m.RemainingTTL(context.Background(), 7, "A2")
    require.NoError(t, err)
    assert.Equal(t, time.Duration(0), d)
    assert.NoError(t, mock.ExpectationsWereMet())
}
