package session

import "time"

// EventType describes the kind of change a session published.
type EventType string

const (
	EventTick     EventType = "tick"
	EventPurchase EventType = "purchase"
	EventUnlock   EventType = "unlock"
	EventPrestige EventType = "prestige"
	EventBuyMode  EventType = "buyMode"
	EventSave     EventType = "save"
	EventRestart  EventType = "restart"
)

// Event is one state change. Data holds one of the *Data payloads below.
type Event struct {
	ID   uint64    `json:"id"`
	At   time.Time `json:"at"`
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

type TickData struct {
	Delta    time.Duration `json:"delta"`
	Currency string        `json:"currency"`
}

type PurchaseData struct {
	GeneratorID int    `json:"generatorId"`
	Amount      int    `json:"amount"`
	Level       int    `json:"level"`
	Cost        string `json:"cost"`
}

type UnlockData struct {
	GeneratorID int    `json:"generatorId"`
	Cost        string `json:"cost"`
}

type PrestigeData struct {
	GeneratorID int    `json:"generatorId"`
	Generator   string `json:"generator"`
	Bonus       string `json:"bonus"`
	Magnitude   string `json:"magnitude"`
	Value       string `json:"value"`
	Selectable  bool   `json:"selectable"`
}

type BuyModeData struct {
	Mode   string `json:"mode"`
	Sticky bool   `json:"sticky"`
}

type SaveData struct {
	Auto bool `json:"auto"`
}
