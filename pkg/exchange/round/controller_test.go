package round

import (
	"errors"
	"testing"
	"time"

	"github.com/uhyunpark/acdex/pkg/util"
)

const (
	testPrice    = uint64(10_000_000_000_000) // 0.00001 ETH
	testDuration = 1000 * time.Second
)

func newTestController(t *testing.T, volume uint64) (*Controller, *util.ManualClock) {
	t.Helper()
	clock := util.NewManualClock(time.Unix(1_700_000_000, 0))
	c, err := NewController(clock, Config{
		Duration:     testDuration,
		InitialPrice: testPrice,
		Pricing:      GrowthPricing(10_300, 4_000_000_000_000),
	}, volume)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	return c, clock
}

func TestInitialState(t *testing.T) {
	c, _ := newTestController(t, 100_000)
	st := c.Current()
	if st.Kind != Sale {
		t.Errorf("initial kind = %v, want sale", st.Kind)
	}
	if st.Price != testPrice || st.SaleVolume != 100_000 {
		t.Errorf("price/volume = %d/%d", st.Price, st.SaleVolume)
	}
	if st.Number != 0 {
		t.Errorf("number = %d, want 0", st.Number)
	}
}

func TestStartTradeRoundGuards(t *testing.T) {
	c, clock := newTestController(t, 100_000)

	// Neither expired nor sold out.
	if _, err := c.StartTradeRound(); !errors.Is(err, ErrSaleNotOver) {
		t.Fatalf("early transition: got %v, want ErrSaleNotOver", err)
	}

	clock.Advance(testDuration + time.Second)
	if _, err := c.StartTradeRound(); err != nil {
		t.Fatalf("transition after deadline: %v", err)
	}
	if c.Kind() != Trade {
		t.Errorf("kind = %v, want trade", c.Kind())
	}

	if _, err := c.StartTradeRound(); !errors.Is(err, ErrRoundActive) {
		t.Errorf("double start: got %v, want ErrRoundActive", err)
	}
}

func TestStartTradeRoundOnSoldOut(t *testing.T) {
	c, _ := newTestController(t, 100_000)
	if err := c.ConsumeSaleVolume(100_000); err != nil {
		t.Fatal(err)
	}

	// Deadline not reached, but supply exhausted.
	if _, err := c.StartTradeRound(); err != nil {
		t.Fatalf("transition on sold-out: %v", err)
	}
}

func TestStartSaleRoundGuards(t *testing.T) {
	c, clock := newTestController(t, 100_000)

	if _, err := c.StartSaleRound(); !errors.Is(err, ErrRoundActive) {
		t.Fatalf("sale->sale: got %v, want ErrRoundActive", err)
	}

	clock.Advance(testDuration + time.Second)
	if _, err := c.StartTradeRound(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.StartSaleRound(); !errors.Is(err, ErrTradeNotOver) {
		t.Fatalf("early sale start: got %v, want ErrTradeNotOver", err)
	}

	clock.Advance(testDuration + time.Second)
	if _, err := c.StartSaleRound(); err != nil {
		t.Fatalf("sale start after deadline: %v", err)
	}
}

func TestKindAlternation(t *testing.T) {
	c, clock := newTestController(t, 100_000)

	for i := 1; i <= 6; i++ {
		clock.Advance(testDuration + time.Second)
		var err error
		if i%2 == 1 {
			_, err = c.StartTradeRound()
		} else {
			_, err = c.StartSaleRound()
		}
		if err != nil {
			t.Fatalf("transition %d: %v", i, err)
		}

		st := c.Current()
		if st.Number != uint64(i) {
			t.Errorf("number = %d, want %d", st.Number, i)
		}
		wantKind := Sale
		if i%2 == 1 {
			wantKind = Trade
		}
		if st.Kind != wantKind {
			t.Errorf("after %d transitions kind = %v, want %v", i, st.Kind, wantKind)
		}
	}
}

func TestSaleRoundRecomputation(t *testing.T) {
	c, clock := newTestController(t, 100_000)

	clock.Advance(testDuration + time.Second)
	if _, err := c.StartTradeRound(); err != nil {
		t.Fatal(err)
	}

	// 0.5 ETH of trade turnover.
	c.AddTradeVolume(500_000_000_000_000_000)

	clock.Advance(testDuration + time.Second)
	st, err := c.StartSaleRound()
	if err != nil {
		t.Fatal(err)
	}

	wantPrice := testPrice*10_300/10_000 + 4_000_000_000_000 // 0.0000143 ETH
	if st.Price != wantPrice {
		t.Errorf("next price = %d, want %d", st.Price, wantPrice)
	}
	if want := 500_000_000_000_000_000 / wantPrice; st.SaleVolume != want {
		t.Errorf("next volume = %d, want %d", st.SaleVolume, want)
	}
	if st.TradeVolume != 500_000_000_000_000_000 {
		t.Errorf("trade volume = %d", st.TradeVolume)
	}
}

func TestZeroVolumeSaleRound(t *testing.T) {
	c, clock := newTestController(t, 100_000)

	clock.Advance(testDuration + time.Second)
	if _, err := c.StartTradeRound(); err != nil {
		t.Fatal(err)
	}
	// No redemptions at all.
	clock.Advance(testDuration + time.Second)
	st, err := c.StartSaleRound()
	if err != nil {
		t.Fatalf("zero-volume sale round rejected: %v", err)
	}
	if st.SaleVolume != 0 {
		t.Errorf("volume = %d, want 0", st.SaleVolume)
	}

	// A zero-volume sale round counts as sold out, so the next trade
	// round can start immediately.
	if _, err := c.StartTradeRound(); err != nil {
		t.Errorf("transition out of zero-volume round: %v", err)
	}
}

func TestTradeVolumeResetsEachRound(t *testing.T) {
	c, clock := newTestController(t, 100_000)

	clock.Advance(testDuration + time.Second)
	c.StartTradeRound()
	c.AddTradeVolume(12345)

	clock.Advance(testDuration + time.Second)
	c.StartSaleRound()
	clock.Advance(testDuration + time.Second)
	st, err := c.StartTradeRound()
	if err != nil {
		t.Fatal(err)
	}
	if st.TradeVolume != 0 {
		t.Errorf("trade volume carried over: %d", st.TradeVolume)
	}
}

func TestGrowthPricingMonotone(t *testing.T) {
	f := GrowthPricing(10_300, 4_000_000_000_000)
	p := testPrice
	for i := 0; i < 50; i++ {
		next := f(p)
		if next <= p {
			t.Fatalf("price not increasing at step %d: %d -> %d", i, p, next)
		}
		p = next
	}
}

func TestMulBpsExactness(t *testing.T) {
	tests := []struct {
		v, bps, want uint64
	}{
		{10_000, 10_300, 10_300},
		{1, 10_300, 1},                   // floor(1.03)
		{999, 125, 12},                   // floor(12.48)
		{1_000_000_000_000_000_000, 125, 12_500_000_000_000_000}, // no overflow
	}
	for _, tt := range tests {
		if got := mulBps(tt.v, tt.bps); got != tt.want {
			t.Errorf("mulBps(%d, %d) = %d, want %d", tt.v, tt.bps, got, tt.want)
		}
	}
}
