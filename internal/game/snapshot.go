package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a read-only view of the state for the presentation layer.
type Snapshot struct {
	Currency             decimal.Decimal     `json:"currency"`
	CurrencyText         string              `json:"currencyText"`
	IncomePerSecond      decimal.Decimal     `json:"incomePerSecond"`
	IncomeText           string              `json:"incomeText"`
	LifetimeEarnings     decimal.Decimal     `json:"lifetimeEarnings"`
	PrestigeValue        decimal.Decimal     `json:"prestigeValue"`
	IdleMultiplier       float64             `json:"idleMultiplier"`
	TotalPrestiges       int                 `json:"totalPrestiges"`
	SelectablesRemaining int                 `json:"selectablesRemaining"`
	TimePlayedMs         int64               `json:"timePlayedMs"`
	BuyMode              BuyMode             `json:"buyMode"`
	BuyModeLabel         string              `json:"buyModeLabel"`
	Generators           []GeneratorSnapshot `json:"generators"`
	History              []HistorySnapshot   `json:"history"`
	TakenAt              time.Time           `json:"takenAt"`
}

type GeneratorSnapshot struct {
	ID            int               `json:"id"`
	Name          string            `json:"name"`
	Color         string            `json:"color"`
	Level         int               `json:"level"`
	Unlocked      bool              `json:"unlocked"`
	UnlockCost    decimal.Decimal   `json:"unlockCost"`
	FillProgress  float64           `json:"fillProgress"`
	FillMillis    float64           `json:"fillMillis"`
	Production    decimal.Decimal   `json:"production"`
	NextCost      decimal.Decimal   `json:"nextCost"`
	BuyAmount     int               `json:"buyAmount"`
	BuyCost       decimal.Decimal   `json:"buyCost"`
	Affordable    bool              `json:"affordable"`
	Milestone     MilestoneProgress `json:"milestone"`
	EarnBonus     decimal.Decimal   `json:"earnBonus"`
	SpeedBonus    float64           `json:"speedBonus"`
	CostReduction float64           `json:"costReduction"`
}

type HistorySnapshot struct {
	Generator string    `json:"generator"`
	Bonus     string    `json:"bonus"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// TakeSnapshot derives every presentation value from s without mutating it.
func TakeSnapshot(s *GameState, now time.Time) Snapshot {
	snap := Snapshot{
		Currency:             s.Currency,
		CurrencyText:         FormatNumber(s.Currency),
		IncomePerSecond:      s.Stats.IncomePerSecond,
		IncomeText:           FormatNumber(s.Stats.IncomePerSecond) + "/s",
		LifetimeEarnings:     s.Stats.LifetimeEarnings,
		PrestigeValue:        PrestigeValue(s),
		IdleMultiplier:       s.Prestige.CurrentIdleMultiplier,
		TotalPrestiges:       s.Prestige.TotalPrestiges,
		SelectablesRemaining: s.Prestige.SelectablesRemaining,
		TimePlayedMs:         s.Stats.TimePlayed.Milliseconds(),
		BuyMode:              s.Settings.BuyMode,
		BuyModeLabel:         s.Settings.BuyMode.String(),
		Generators:           make([]GeneratorSnapshot, 0, len(s.Generators)),
		History:              make([]HistorySnapshot, 0, len(s.Prestige.History)),
		TakenAt:              now,
	}

	for i := range s.Generators {
		g := &s.Generators[i]
		amount := ResolveAmount(s, g, s.Settings.BuyMode)
		if amount <= 0 {
			amount = 1
		}
		buyCost := BulkCost(g, g.Level, amount)
		snap.Generators = append(snap.Generators, GeneratorSnapshot{
			ID:            g.ID,
			Name:          g.Name,
			Color:         g.Color,
			Level:         g.Level,
			Unlocked:      g.Unlocked,
			UnlockCost:    g.UnlockCost,
			FillProgress:  g.FillProgress,
			FillMillis:    g.FillMillis(),
			Production:    Production(g, s.Rules.Milestones),
			NextCost:      Cost(g, g.Level),
			BuyAmount:     amount,
			BuyCost:       buyCost,
			Affordable:    g.Unlocked && s.Currency.GreaterThanOrEqual(buyCost),
			Milestone:     s.Rules.Milestones.Progress(g.Level),
			EarnBonus:     g.EarnBonus,
			SpeedBonus:    g.SpeedBonus,
			CostReduction: g.CostReduction,
		})
	}

	for _, h := range s.Prestige.History {
		snap.History = append(snap.History, HistorySnapshot(h))
	}
	return snap
}
