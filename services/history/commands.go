package history

import (
	"context"
	"sort"
	"time"

	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/services/checkout/checkoutevents"
)

// archive writes one SaleRecord per submitted line. Re-archiving a line that
// is already present is a no-op, so event redelivery and task retries are
// safe.
func (s *service) archive(c context.Context, event checkoutevents.CheckoutCompleted) error {
	soldAt, err := time.Parse(time.RFC3339, event.CompletedAt)
	if err != nil {
		soldAt = s.nower.Now()
	}

	return s.historyStore.RunInTransaction(c, func(c context.Context) error {
		for _, line := range event.Lines {
			uid := saleRecordUID(event.SessionUID, line.LineUID)

			_, exists, err := s.historyStore.Get(c, uid)
			if err != nil {
				return myerrors.NewInternalError(err)
			}
			if exists {
				s.logger.Log(c, event.SessionUID, mylog.SeverityDebug, "Sale record %s already archived", uid)
				continue
			}

			err = s.historyStore.Put(c, uid, SaleRecord{
				UID:           uid,
				SessionUID:    event.SessionUID,
				LineUID:       line.LineUID,
				ProductUID:    line.ProductUID,
				ProductName:   line.ProductName,
				PriceInCents:  line.PriceInCents,
				Quantity:      line.Quantity,
				Selection:     line.Selection,
				PaymentMethod: event.PaymentMethod,
				SoldAt:        soldAt,
			})
			if err != nil {
				return myerrors.NewInternalError(err)
			}
		}
		return nil
	})
}

func (s *service) listHistory(c context.Context) ([]SaleRecord, error) {
	records, err := s.historyStore.List(c)
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}

	// TODO sort in database
	sort.Slice(records, func(i, j int) bool {
		return records[i].SoldAt.After(records[j].SoldAt)
	})

	return records, nil
}

// report aggregates revenue and units over the sale records within
// [from, to). Recomputed from the records on every call.
func (s *service) report(c context.Context, from time.Time, to time.Time) (Report, error) {
	records, err := s.historyStore.List(c)
	if err != nil {
		return Report{}, myerrors.NewInternalError(err)
	}

	report := Report{
		From:          from,
		To:            to,
		ProductTotals: []ProductTotal{},
	}

	totalsPerProduct := map[string]*ProductTotal{}
	for _, record := range records {
		if record.SoldAt.Before(from) || !record.SoldAt.Before(to) {
			continue
		}

		report.TotalRevenueInCents += record.TotalInCents()
		report.TotalUnits += record.Quantity

		total, exists := totalsPerProduct[record.ProductUID]
		if !exists {
			total = &ProductTotal{
				ProductUID:  record.ProductUID,
				ProductName: record.ProductName,
			}
			totalsPerProduct[record.ProductUID] = total
		}
		total.Units += record.Quantity
		total.RevenueInCents += record.TotalInCents()
	}

	for _, total := range totalsPerProduct {
		report.ProductTotals = append(report.ProductTotals, *total)
	}
	sort.Slice(report.ProductTotals, func(i, j int) bool {
		return report.ProductTotals[i].RevenueInCents > report.ProductTotals[j].RevenueInCents
	})

	return report, nil
}
