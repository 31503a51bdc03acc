package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/communityshop/posbackend/lib/myerrors"
)

//go:generate mockgen -source=payer.go -package payment -destination payer_mock.go Payer
type Payer interface {
	UseApiKey(key string)
	CreatePaymentIntent(ctx context.Context, amountInCents int64, description string) (string, error)
}

type stripePayer struct{}

func NewPayer() Payer {
	return &stripePayer{}
}

func (p *stripePayer) UseApiKey(apiKey string) {
	stripe.Key = apiKey
}

// CreatePaymentIntent captures a card payment for the given amount and
// returns the payment intent uid.
func (p *stripePayer) CreatePaymentIntent(ctx context.Context, amountInCents int64, description string) (string, error) {
	intent, err := paymentintent.New(&stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amountInCents),
		Currency:    stripe.String(string(stripe.CurrencyPHP)),
		Description: stripe.String(description),
	})
	if err != nil {
		return "", myerrors.NewInvalidInputError(fmt.Errorf("error creating stripe payment intent: %s", err))
	}

	return intent.ID, nil
}
