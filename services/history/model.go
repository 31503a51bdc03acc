package history

import (
	"time"
)

// SaleRecord is one archived cart line of a completed checkout. The UID is
// derived from (session, line) so that redelivered events and retried tasks
// archive each sold line exactly once.
type SaleRecord struct {
	UID           string
	SessionUID    string
	LineUID       string
	ProductUID    string
	ProductName   string
	PriceInCents  int64
	Quantity      int
	Selection     map[string]string
	PaymentMethod string
	SoldAt        time.Time
}

func (r SaleRecord) TotalInCents() int64 {
	return r.PriceInCents * int64(r.Quantity)
}

func saleRecordUID(sessionUID string, lineUID string) string {
	return sessionUID + "_" + lineUID
}

// Report is a pure derivation over the sale records in a time range,
// recomputed on every request.
type Report struct {
	From                time.Time
	To                  time.Time
	TotalRevenueInCents int64
	TotalUnits          int
	ProductTotals       []ProductTotal
}

type ProductTotal struct {
	ProductUID     string
	ProductName    string
	Units          int
	RevenueInCents int64
}
