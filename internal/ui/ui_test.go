package ui

import (
	"context"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"archuser.org/idle-game/internal/clock"
	"archuser.org/idle-game/internal/config"
	"archuser.org/idle-game/internal/game"
	"archuser.org/idle-game/internal/save"
	"archuser.org/idle-game/internal/session"
	"archuser.org/idle-game/internal/store"
)

func newTestUI(t *testing.T, width, height int) *UI {
	t.Helper()
	cfg := config.Default()
	logger := log.New(io.Discard)
	clk := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	sess, _, err := session.Open(context.Background(), session.Options{
		Rules:  game.NewRules(cfg),
		Codec:  save.NewCodec(store.NewMemory(), cfg.Save, logger),
		Clock:  clk,
		Rand:   rand.New(rand.NewPCG(1, 2)),
		Loop:   cfg.Loop,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(width, height)
	t.Cleanup(screen.Fini)
	return New(screen, sess, clk, logger)
}

func screenText(ui *UI) string {
	width, height := ui.screen.Size()
	var b strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := ui.screen.GetContent(x, y)
			if r == 0 {
				r = ' '
			}
			b.WriteRune(r)
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func TestDrawShowsGenerators(t *testing.T) {
	ui := newTestUI(t, 140, 40)
	ui.draw()
	text := screenText(ui)

	for _, want := range []string{"Idle Generators", "Currency 10", "Red", "Orange", "locked | unlock for 1.00K", "buy x1"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected screen to contain %q", want)
		}
	}
}

func TestDrawTooSmall(t *testing.T) {
	ui := newTestUI(t, 60, 10)
	ui.draw()
	if !strings.Contains(screenText(ui), "Terminal too small") {
		t.Fatal("expected resize hint")
	}
}

func TestCommands(t *testing.T) {
	ui := newTestUI(t, 140, 40)
	ctx := context.Background()

	ui.command(ctx, 'b')
	if ui.statusMessage != "bought" || ui.sess.State().Generator(1).Level != 1 {
		t.Fatalf("expected purchase, status %q", ui.statusMessage)
	}
	ui.command(ctx, 'b')
	if ui.statusMessage != "cannot afford" {
		t.Fatalf("expected cannot afford, got %q", ui.statusMessage)
	}

	ui.command(ctx, 's')
	ui.command(ctx, 'u')
	if ui.selected != 1 || ui.statusMessage != "cannot unlock" {
		t.Fatalf("expected failed unlock on second generator, got %d %q", ui.selected, ui.statusMessage)
	}
	ui.command(ctx, 'w')
	ui.command(ctx, 'w')
	if ui.selected != 0 {
		t.Fatalf("expected selection clamped at 0, got %d", ui.selected)
	}

	ui.command(ctx, 'm')
	if got := ui.sess.Snapshot().BuyModeLabel; got != "x10" {
		t.Fatalf("expected x10, got %s", got)
	}
	ui.command(ctx, 'e')
	if ui.bonusType() != game.BonusSpeed {
		t.Fatalf("expected speed bonus selected, got %s", ui.bonusType())
	}

	ui.command(ctx, 'p')
	if ui.statusMessage != "nothing to prestige for yet" {
		t.Fatalf("unexpected prestige status %q", ui.statusMessage)
	}
	ui.command(ctx, 't')
	if ui.statusMessage != "saved" {
		t.Fatalf("expected saved, got %q", ui.statusMessage)
	}
}

func TestGeneratorLine(t *testing.T) {
	g := game.GeneratorSnapshot{
		Name:         "Red",
		Level:        1234,
		Unlocked:     true,
		FillProgress: 0.5,
		BuyAmount:    10,
		Milestone:    game.MilestoneProgress{Maxed: true},
	}
	line := generatorLine(g)
	for _, want := range []string{"1,234", "[######......]", "buy 10", "maxed"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 5); got != "ab..." {
		t.Fatalf("expected ab..., got %q", got)
	}
	if got := truncate("ab", 5); got != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
}
