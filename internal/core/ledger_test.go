package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeLedger(t *testing.T) {
	ledger, err := DecodeLedger("")
	require.NoError(t, err)
	require.Empty(t, ledger.Entries)

	ledger, err = DecodeLedger("[1700000000000,1700000001000]")
	require.NoError(t, err)
	require.Equal(t, []int64{1700000000000, 1700000001000}, ledger.Entries)

	_, err = DecodeLedger("{not json")
	require.Error(t, err)
}

func TestLedgerEncode(t *testing.T) {
	require.Equal(t, "[]", Ledger{}.Encode())
	require.Equal(t, "[1,2]", Ledger{Entries: []int64{1, 2}}.Encode())
}

func TestLedgerAdmit(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stale := now.Add(-2 * time.Hour).UnixMilli()
	ledger := Ledger{Entries: []int64{stale}}

	require.True(t, ledger.Admit(now, time.Hour, 1))
	require.Equal(t, []int64{now.UnixMilli()}, ledger.Entries)

	require.False(t, ledger.Admit(now.Add(time.Minute), time.Hour, 1))
	require.Equal(t, []int64{now.UnixMilli()}, ledger.Entries)
}

func TestLedgerRecentKeepsStoredOrder(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := Ledger{Entries: []int64{
		now.Add(-10 * time.Minute).UnixMilli(),
		now.Add(-time.Hour).UnixMilli(),
		now.Add(-time.Minute).UnixMilli(),
	}}

	require.Equal(t, []int64{
		now.Add(-10 * time.Minute).UnixMilli(),
		now.Add(-time.Minute).UnixMilli(),
	}, ledger.Recent(now, time.Hour))
	require.Len(t, ledger.Entries, 3)
}

func TestDecoySeedMatches(t *testing.T) {
	seed := DecoySeed{A: "a", B: "b"}
	require.True(t, seed.Matches("a", "b"))
	require.False(t, seed.Matches("a", ""))
	require.True(t, DecoySeed{}.Matches("", ""))
}
