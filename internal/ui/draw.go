package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"archuser.org/idle-game/internal/game"
)

func (ui *UI) draw() {
	ui.screen.Clear()
	width, height := ui.screen.Size()
	if width < minWidth || height < minHeight {
		ui.drawTooSmall(width, height)
		ui.screen.Show()
		return
	}

	snap := ui.sess.Snapshot()
	ui.drawHeader(snap, width)
	ui.drawGenerators(snap, 2, 5, width, height-10)
	ui.drawFooter(snap, 2, height-2, width)
	ui.screen.Show()
}

func (ui *UI) drawTooSmall(width, height int) {
	message := fmt.Sprintf("Terminal too small (%dx%d). Need at least %dx%d.", width, height, minWidth, minHeight)
	ui.drawTextCentered(width, height/2, message, tcell.StyleDefault.Foreground(tcell.ColorRed))
	ui.drawTextCentered(width, height/2+2, "Resize the window to continue.", tcell.StyleDefault.Foreground(tcell.ColorWhite))
}

func (ui *UI) drawHeader(snap game.Snapshot, width int) {
	ui.drawText(2, 1, "Idle Generators", tcell.StyleDefault.Bold(true))
	played := humanize.RelTime(snap.TakenAt.Add(-msDuration(snap.TimePlayedMs)), snap.TakenAt, "", "")
	right := "played " + strings.TrimSpace(played)
	if startX := width - len(right) - 2; startX > 20 {
		ui.drawText(startX, 1, right, tcell.StyleDefault.Dim(true))
	}

	line := fmt.Sprintf("Currency %s  |  %s  |  Prestige value %s  |  Idle x%.2f  |  Prestiges %d",
		snap.CurrencyText, snap.IncomeText, game.FormatNumber(snap.PrestigeValue), snap.IdleMultiplier, snap.TotalPrestiges)
	ui.drawText(2, 2, truncate(line, width-4), tcell.StyleDefault)
	if snap.SelectablesRemaining > 0 {
		ui.drawText(2, 3, fmt.Sprintf("Selectable prestiges left: %d (bonus: %s)", snap.SelectablesRemaining, ui.bonusType().Label()),
			tcell.StyleDefault.Foreground(tcell.ColorYellow))
	}
}

func (ui *UI) drawGenerators(snap game.Snapshot, x, y, width, height int) {
	ui.drawText(x, y, fmt.Sprintf("Generators - buy %s", snap.BuyModeLabel), tcell.StyleDefault.Bold(true))
	rows := height - 1
	if rows <= 0 {
		return
	}
	if ui.selected < ui.scroll {
		ui.scroll = ui.selected
	}
	if ui.selected >= ui.scroll+rows {
		ui.scroll = ui.selected - rows + 1
	}
	end := min(len(snap.Generators), ui.scroll+rows)

	for i := ui.scroll; i < end; i++ {
		g := snap.Generators[i]
		style := tcell.StyleDefault.Foreground(tcell.GetColor(g.Color))
		if i == ui.selected {
			style = style.Reverse(true)
		}
		ui.drawText(x+2, y+1+(i-ui.scroll), truncate(generatorLine(g), width-x-4), style)
	}
}

func generatorLine(g game.GeneratorSnapshot) string {
	if !g.Unlocked {
		return fmt.Sprintf("%-8s locked | unlock for %s", g.Name, game.FormatNumber(g.UnlockCost))
	}
	milestone := "maxed"
	if !g.Milestone.Maxed {
		milestone = fmt.Sprintf("%3.0f%% to %d", g.Milestone.Progress*100, g.Milestone.Next)
	}
	return fmt.Sprintf("%-8s Lv %6s %s %9s/cycle | buy %d for %s | %s",
		g.Name,
		humanize.Comma(int64(g.Level)),
		fillBar(g.FillProgress),
		game.FormatNumber(g.Production),
		g.BuyAmount,
		game.FormatNumber(g.BuyCost),
		milestone,
	)
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func fillBar(progress float64) string {
	filled := clamp(int(progress*barWidth), 0, barWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}

func (ui *UI) drawFooter(snap game.Snapshot, x, y, width int) {
	controlsTop := "w/s or ↑/↓ select | b buy | u unlock | m buy mode | e prestige bonus"
	controlsBottom := "p prestige | t save | esc quit"
	ui.drawText(x, y-1, truncate(controlsTop, width-x-2), tcell.StyleDefault)
	ui.drawText(x, y, truncate(controlsBottom, width-x-2), tcell.StyleDefault)

	status := ui.statusMessage
	if snap.TakenAt.Sub(ui.lastStatusAt) > statusTimeout {
		status = "buy mode: " + snap.BuyModeLabel
	}
	ui.drawText(x, y-2, truncate(status, width-x-2), tcell.StyleDefault.Foreground(tcell.ColorGreen))
}

func (ui *UI) drawText(x, y int, text string, style tcell.Style) {
	col := 0
	for _, char := range text {
		ui.screen.SetContent(x+col, y, char, nil, style)
		col++
	}
}

func (ui *UI) drawTextCentered(width, y int, text string, style tcell.Style) {
	start := max(0, (width-len([]rune(text)))/2)
	ui.drawText(start, y, text, style)
}

func truncate(text string, width int) string {
	runes := []rune(text)
	if width <= 0 {
		return ""
	}
	if len(runes) <= width {
		return text
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
