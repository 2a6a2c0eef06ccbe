package game

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"archuser.org/idle-game/internal/config"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testRules() *Rules {
	return NewRules(config.Default())
}

func newTestState(t *testing.T) *GameState {
	t.Helper()
	return New(testRules(), testNow)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertClose(t *testing.T, got, want decimal.Decimal, rel float64) {
	t.Helper()
	if want.IsZero() {
		if !got.IsZero() {
			t.Fatalf("expected 0, got %s", got)
		}
		return
	}
	diff := got.Sub(want).Abs().Div(want.Abs())
	if diff.GreaterThan(decimal.NewFromFloat(rel)) {
		t.Fatalf("expected %s within %g, got %s", want, rel, got)
	}
}
