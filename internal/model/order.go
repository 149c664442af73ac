package model

import "time"

// Order side, type, and time-in-force values as the broker API expects them.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrderTypeMarket = "market"

	TIFGoodTillCanceled = "gtc"
)

// OrderRequest describes a simple market order submission.
type OrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         int64  `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

// Order is the broker's view of a submitted order.
type Order struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Qty         int64     `json:"qty"`
	Side        string    `json:"side"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Account is the broker account snapshot the executor sizes orders against.
type Account struct {
	Cash        float64 `json:"cash"`
	BuyingPower float64 `json:"buying_power"`
}

// Trade is the latest trade for a symbol, used for order sizing.
type Trade struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	TS     time.Time `json:"ts"`
}
