package checkout

import (
	"time"

	"github.com/communityshop/posbackend/services/cart"
)

type CheckoutStatus string

const (
	CheckoutStatusIdle       CheckoutStatus = "idle"
	CheckoutStatusSubmitting CheckoutStatus = "submitting"
	CheckoutStatusSuccess    CheckoutStatus = "success"
	CheckoutStatusFailure    CheckoutStatus = "failure"
)

// CheckoutContext is the per-session coordinator state. The Lines are a deep
// copy taken at submit time: edits to the cart while the submission is in
// flight do not affect them.
type CheckoutContext struct {
	SessionUID       string
	Status           CheckoutStatus
	Lines            []cart.CartLine
	TotalInCents     int64
	PaymentMethod    string
	PaymentReference string
	FailureReason    string
	SubmittedAt      *time.Time
	CompletedAt      *time.Time
}

func (cc CheckoutContext) IsInFlight() bool {
	return cc.Status == CheckoutStatusSubmitting
}
