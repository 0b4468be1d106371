package storage

import "time"

type SignalStatus string

const (
	StatusPending             SignalStatus = "pending"
	StatusPendingConfirmation SignalStatus = "pending_confirmation"
	StatusConfirmed           SignalStatus = "confirmed"
	StatusRejected            SignalStatus = "rejected"
	StatusExecuted            SignalStatus = "executed"
)

const (
	TradePurchase = "purchase"
	TradeSale     = "sale"
)

const (
	SignalDirect    = "direct"
	SignalSectorETF = "sector_etf"
)

// Signal is one disclosed transaction candidate. The composite unique index
// makes re-ingestion of the same disclosure a no-op.
type Signal struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Ticker         string  `gorm:"not null;uniqueIndex:idx_signal_dedup" json:"ticker"`
	Politician     string  `gorm:"not null;uniqueIndex:idx_signal_dedup" json:"politician"`
	TradeDate      string  `gorm:"not null;uniqueIndex:idx_signal_dedup" json:"trade_date"` // YYYY-MM-DD
	TradeType      string  `gorm:"not null;uniqueIndex:idx_signal_dedup" json:"trade_type"` // purchase or sale
	AmountMidpoint float64 `gorm:"not null" json:"amount_midpoint"`
	DisclosureDate string  `gorm:"not null" json:"disclosure_date"`
	LagDays        int     `gorm:"not null" json:"lag_days"`
	SignalType     string  `gorm:"not null;default:'direct'" json:"signal_type"` // direct or sector_etf
	Chamber        string  `gorm:"not null" json:"chamber"`                      // house or senate
	AssetName      string  `json:"asset_name,omitempty"`
	PDFURL         string  `json:"pdf_url,omitempty"`

	Status SignalStatus `gorm:"index;not null;default:'pending'" json:"status"`
}

// Processed reports whether the signal reached a terminal state.
func (s *Signal) Processed() bool {
	return s.Status == StatusExecuted || s.Status == StatusRejected
}

// ProxyTrade records that a sector ETF was bought in place of a stale
// original ticker, so a later sell of the original redirects to the ETF.
type ProxyTrade struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OriginalTicker string  `gorm:"index:idx_proxy_pair;not null" json:"original_ticker"`
	Politician     string  `gorm:"index:idx_proxy_pair;not null" json:"politician"`
	ProxyTicker    string  `gorm:"not null" json:"proxy_ticker"`
	Shares         float64 `gorm:"not null" json:"shares"`
	BuySignalID    uint    `json:"buy_signal_id"`

	Closed   bool       `gorm:"index;not null;default:false" json:"closed"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// TradeRecord is one executed fill. Append-only; the wash-sale guard reads
// losing sells from here.
type TradeRecord struct {
	ID uint `gorm:"primarykey" json:"id"`

	Ticker     string    `gorm:"index;not null" json:"ticker"`
	TradeType  string    `gorm:"not null" json:"trade_type"` // buy or sell
	Shares     float64   `gorm:"not null" json:"shares"`
	Price      float64   `gorm:"not null" json:"price"`
	ExecutedAt time.Time `gorm:"index;not null" json:"executed_at"`
	PnL        *float64  `gorm:"column:pnl" json:"pnl,omitempty"` // sells only
	SignalID   uint      `json:"signal_id"`
	OrderID    string    `json:"order_id"`
}

type EventLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Level   string `gorm:"index;not null" json:"level"`
	Module  string `gorm:"not null" json:"module"`
	Message string `gorm:"not null" json:"message"`
}
