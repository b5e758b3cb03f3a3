package dispatch

import (
	"github.com/shopspring/decimal"

	"github.com/PayButton/paybutton-server/app/models"
)

// BroadcastTxData groups newly observed payments for one receiving address,
// as handed over by the transaction ingestion pipeline.
type BroadcastTxData struct {
	Address string    `json:"address"`
	Txs     []Payment `json:"txs"`
}

// Payment is one observed blockchain payment. Immutable once observed.
type Payment struct {
	Hash           string          `json:"hash"`
	Amount         decimal.Decimal `json:"amount"`
	Timestamp      int64           `json:"timestamp"`
	PaymentID      string          `json:"paymentId,omitempty"`
	Message        string          `json:"message,omitempty"`
	RawMessage     string          `json:"rawMessage,omitempty"`
	InputAddresses []string        `json:"inputAddresses,omitempty"`
	Confirmed      bool            `json:"confirmed"`
}

// OpReturn is the structured message carried in a transaction's OP_RETURN
// output. The zero value is the explicit empty marker used when a payment
// carries no message.
type OpReturn struct {
	Message    string `json:"message"`
	RawMessage string `json:"rawMessage"`
	PaymentID  string `json:"paymentId"`
}

// ResolvedTrigger is a trigger annotated with its button and owner context,
// including the owner's point-in-time credit snapshot taken at resolution.
type ResolvedTrigger struct {
	Trigger           models.Trigger
	ButtonName        string
	UserID            uint
	PreferredCurrency string
	PostCredits       int
	EmailCredits      int
}

// AcceptedCounts tallies credit-worthy deliveries per channel for one user
// within a single batch.
type AcceptedCounts struct {
	Post  int
	Email int
}

// PriceSource formats a payment amount in the quote currency preferred by
// the receiving user. Conversion data comes from an external price service.
type PriceSource interface {
	FormatQuote(amount decimal.Decimal, networkID uint, preferredCurrency string, timestamp int64) (string, error)
}

// TickerPrices is the fallback PriceSource: it reports the raw on-chain
// amount without any conversion.
type TickerPrices struct{}

func (TickerPrices) FormatQuote(amount decimal.Decimal, _ uint, _ string, _ int64) (string, error) {
	return amount.String(), nil
}

// StatsRecorder receives operational dispatch counters. Implementations must
// be safe to call from the dispatcher hot path; failures are swallowed.
type StatsRecorder interface {
	AddScheduled(channel models.TriggerChannel, n int)
	AddSkipped(channel models.TriggerChannel, n int)
}
