// Package ui is the terminal client for a session.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"archuser.org/idle-game/internal/clock"
	"archuser.org/idle-game/internal/game"
	"archuser.org/idle-game/internal/session"
)

const (
	minWidth      = 100
	minHeight     = 24
	redrawEvery   = 100 * time.Millisecond
	statusTimeout = 5 * time.Second
	barWidth      = 12
)

type UI struct {
	screen tcell.Screen
	sess   *session.Session
	clk    clock.Clock
	logger *log.Logger

	selected      int
	scroll        int
	bonus         int
	statusMessage string
	lastStatusAt  time.Time
}

// NewScreen creates and initializes the real terminal screen.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.SetStyle(tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack))
	return screen, nil
}

// New wraps an initialized screen. The UI takes ownership and finalizes it
// when Run returns.
func New(screen tcell.Screen, sess *session.Session, clk clock.Clock, logger *log.Logger) *UI {
	return &UI{screen: screen, sess: sess, clk: clk, logger: logger}
}

// Run draws and handles input until the player quits or ctx is done.
func (ui *UI) Run(ctx context.Context) error {
	defer ui.screen.Fini()

	tick := time.NewTicker(redrawEvery)
	defer tick.Stop()

	eventCh := make(chan tcell.Event)
	done := make(chan struct{})
	go func() {
		for {
			ev := ui.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case <-done:
				return
			case eventCh <- ev:
			}
		}
	}()
	defer close(done)

	for {
		ui.draw()
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		case ev := <-eventCh:
			switch event := ev.(type) {
			case *tcell.EventResize:
				ui.screen.Sync()
			case *tcell.EventKey:
				if ui.handleKey(ctx, event) {
					return nil
				}
			}
		}
	}
}

func (ui *UI) handleKey(ctx context.Context, event *tcell.EventKey) bool {
	switch event.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		ui.shiftSelection(-1)
	case tcell.KeyDown:
		ui.shiftSelection(1)
	case tcell.KeyRune:
		ui.command(ctx, event.Rune())
	}
	return false
}

func (ui *UI) command(ctx context.Context, r rune) {
	switch r {
	case 'w':
		ui.shiftSelection(-1)
	case 's':
		ui.shiftSelection(1)
	case 'b':
		ui.buy()
	case 'u':
		ui.unlock()
	case 'm':
		ui.setStatus("buy mode: " + ui.sess.CycleBuyMode().String())
	case 'e':
		ui.bonus = (ui.bonus + 1) % len(game.BonusTypes)
		ui.setStatus("prestige bonus: " + ui.bonusType().Label())
	case 'p':
		ui.prestige()
	case 't':
		ui.save(ctx)
	}
}

func (ui *UI) selectedID() (int, bool) {
	snap := ui.sess.Snapshot()
	if ui.selected < 0 || ui.selected >= len(snap.Generators) {
		return 0, false
	}
	return snap.Generators[ui.selected].ID, true
}

func (ui *UI) shiftSelection(delta int) {
	count := len(ui.sess.Snapshot().Generators)
	if count == 0 {
		return
	}
	ui.selected = clamp(ui.selected+delta, 0, count-1)
}

func (ui *UI) bonusType() game.BonusType {
	return game.BonusTypes[ui.bonus]
}

func (ui *UI) buy() {
	id, ok := ui.selectedID()
	if !ok {
		return
	}
	switch err := ui.sess.BuyWithMode(id); {
	case err == nil:
		ui.setStatus("bought")
	case errors.Is(err, session.ErrRejected):
		ui.setStatus("cannot afford")
	default:
		ui.setStatus(err.Error())
	}
}

func (ui *UI) unlock() {
	id, ok := ui.selectedID()
	if !ok {
		return
	}
	switch err := ui.sess.Unlock(id); {
	case err == nil:
		ui.setStatus("unlocked")
	case errors.Is(err, session.ErrRejected):
		ui.setStatus("cannot unlock")
	default:
		ui.setStatus(err.Error())
	}
}

func (ui *UI) prestige() {
	var choice *game.Choice
	if ui.sess.Snapshot().SelectablesRemaining > 0 {
		id, ok := ui.selectedID()
		if !ok {
			return
		}
		choice = &game.Choice{GeneratorID: id, Bonus: ui.bonusType()}
	}
	award, err := ui.sess.Prestige(choice)
	if err != nil {
		ui.setStatus("nothing to prestige for yet")
		return
	}
	ui.setStatus(fmt.Sprintf("prestige: %s %s x%s", award.Generator, award.Bonus.Label(), award.Magnitude.StringFixed(2)))
}

func (ui *UI) save(ctx context.Context) {
	if err := ui.sess.Save(ctx); err != nil {
		ui.logger.Error("manual save failed", "err", err)
		ui.setStatus(fmt.Sprintf("save failed: %v", err))
		return
	}
	ui.setStatus("saved")
}

func (ui *UI) setStatus(message string) {
	ui.statusMessage = message
	ui.lastStatusAt = ui.clk.Now()
}
