package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyStockBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		qty, low, high int
		want           StockLevel
	}{
		{qty: 9, low: 10, high: 100, want: StockLow},
		{qty: 10, low: 10, high: 100, want: StockNormal},
		{qty: 100, low: 10, high: 100, want: StockNormal},
		{qty: 101, low: 10, high: 100, want: StockHigh},
		{qty: 0, low: 0, high: 0, want: StockNormal},
		{qty: -1, low: 0, high: 5, want: StockLow},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ClassifyStock(tc.qty, tc.low, tc.high), "qty=%d low=%d high=%d", tc.qty, tc.low, tc.high)
	}

	require.Equal(t, StockLow, StockBadge(9))
	require.Equal(t, StockNormal, StockBadge(10))
	require.Equal(t, StockHigh, StockBadge(101))
	require.Equal(t, "danger", StockLow.Tone())
	require.Equal(t, "Normal", StockNormal.Label())

	level, ok := ParseStockLevel("HIGH")
	require.True(t, ok)
	require.Equal(t, StockHigh, level)
	_, ok = ParseStockLevel("high")
	require.False(t, ok)
}

func TestPriceChangePercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		old, new float64
		want     string
	}{
		{name: "increase", old: 100, new: 110, want: "+10.0%"},
		{name: "decrease", old: 900, new: 810, want: "-10.0%"},
		{name: "equal", old: 50, new: 50, want: "+0.0%"},
		{name: "rounds", old: 3, new: 4, want: "+33.3%"},
		{name: "tiny decrease keeps sign", old: 1000, new: 999.99, want: "-0.0%"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := PriceChangePercent(tc.old, tc.new)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := PriceChangePercent(0, 10)
	require.ErrorIs(t, err, ErrNoPriorPrice)
}

func TestComparePrices(t *testing.T) {
	t.Parallel()

	up, err := ComparePrices(1250, 1350)
	require.NoError(t, err)
	require.Equal(t, PriceChange{Percent: "+8.0%", Trend: TrendUp}, up)

	down, err := ComparePrices(900, 810)
	require.NoError(t, err)
	require.Equal(t, TrendDown, down.Trend)

	flat, err := ComparePrices(10, 10)
	require.NoError(t, err)
	require.Equal(t, TrendFlat, flat.Trend)

	_, err = ComparePrices(0, 0)
	require.ErrorIs(t, err, ErrNoPriorPrice)
}

func TestRankLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "🥇", RankLabel(0))
	require.Equal(t, "🥉", RankLabel(2))
	require.Equal(t, "5️⃣", RankLabel(4))
	require.Equal(t, "6", RankLabel(5))
	require.Equal(t, "12", RankLabel(11))
}

func TestPagination(t *testing.T) {
	t.Parallel()

	p := NewPagination(0)
	require.Equal(t, 50, p.PageSize)
	require.False(t, p.HasPrev())
	require.False(t, p.HasNext())
	require.Equal(t, "Page 1 / 1", p.Label())

	p = p.WithTotal(1, 3)
	require.True(t, p.HasNext())
	p = p.Next().Next().Next()
	require.Equal(t, 3, p.Page)
	require.Equal(t, "Page 3 / 3", p.Label())
	p = p.Prev()
	require.Equal(t, 2, p.Page)
	require.Equal(t, 1, p.Prev().Prev().Page)

	require.Equal(t, 1, p.WithTotal(0, -2).Page)
}
