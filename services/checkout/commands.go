package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/myqueue"
	"github.com/communityshop/posbackend/services/cart"
	"github.com/communityshop/posbackend/services/checkout/checkoutevents"
)

const (
	paymentMethodCash = "cash"
	paymentMethodCard = "card"
)

// submit drives the coordinator through one checkout attempt:
// Idle -> Submitting -> Success or Failure. The remote service is called at
// most once per attempt, on a snapshot of the cart taken at submit time.
func (s *service) submit(c context.Context, sessionUID string, paymentMethod string) (CheckoutContext, error) {
	if paymentMethod == "" {
		paymentMethod = paymentMethodCash
	}
	if paymentMethod != paymentMethodCash && paymentMethod != paymentMethodCard {
		return CheckoutContext{}, myerrors.NewInvalidInputErrorf("unsupported payment method %s", paymentMethod)
	}

	checkoutCtx, err := s.startSubmission(c, sessionUID, paymentMethod)
	if err != nil {
		return CheckoutContext{}, err
	}
	if !checkoutCtx.IsInFlight() {
		// empty cart: no submission was started
		return checkoutCtx, nil
	}

	paymentReference := ""
	if paymentMethod == paymentMethodCard {
		paymentReference, err = s.payer.CreatePaymentIntent(c, checkoutCtx.TotalInCents, fmt.Sprintf("pos session %s", sessionUID))
		if err != nil {
			s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Card capture for session %s failed: %s", sessionUID, err)
			return s.completeWithFailure(c, sessionUID, fmt.Sprintf("card capture failed: %s", err))
		}
	}

	sendCtx, cancel := context.WithTimeout(c, s.timeout)
	defer cancel()

	resp, err := s.sender.SendCheckout(sendCtx, checkoutRequest(sessionUID, checkoutCtx.Lines))
	if err != nil {
		s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Checkout of session %s failed: %s", sessionUID, err)
		return s.completeWithFailure(c, sessionUID, fmt.Sprintf("checkout service unreachable: %s", err))
	}
	if !resp.Accepted {
		reason := resp.Reason
		if reason == "" {
			reason = "rejected by checkout service"
		}
		s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Checkout of session %s rejected: %s", sessionUID, reason)
		return s.completeWithFailure(c, sessionUID, reason)
	}

	return s.completeWithSuccess(c, sessionUID, paymentReference, resp.Deltas)
}

// startSubmission transitions the session into Submitting in one transaction.
// A submission already in flight is rejected; an empty cart leaves the session
// untouched.
func (s *service) startSubmission(c context.Context, sessionUID string, paymentMethod string) (CheckoutContext, error) {
	var checkoutCtx CheckoutContext
	err := s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		existing, found, err := s.checkoutStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if found && existing.IsInFlight() {
			return myerrors.NewConflictError(fmt.Errorf("checkout for session %s is already in flight", sessionUID))
		}

		shoppingCart, found, err := s.cartStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("cart session with uid %s not found", sessionUID))
		}

		if shoppingCart.IsEmpty() {
			s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Submit on empty cart of session %s: nothing to do", sessionUID)
			checkoutCtx = CheckoutContext{
				SessionUID: sessionUID,
				Status:     CheckoutStatusIdle,
			}
			return nil
		}

		now := s.nower.Now()
		checkoutCtx = CheckoutContext{
			SessionUID:    sessionUID,
			Status:        CheckoutStatusSubmitting,
			Lines:         shoppingCart.SnapshotLines(),
			TotalInCents:  shoppingCart.TotalInCents(),
			PaymentMethod: paymentMethod,
			SubmittedAt:   &now,
		}

		err = s.checkoutStore.Put(c, sessionUID, checkoutCtx)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			SessionUID:    sessionUID,
			TotalInCents:  checkoutCtx.TotalInCents,
			PaymentMethod: paymentMethod,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return CheckoutContext{}, err
	}

	return checkoutCtx, nil
}

// completeWithSuccess applies the accepted checkout in one transaction: stock
// deltas, clearing of the submitted lines (lines added while the submission
// was in flight survive) and the state transition. The completed event and
// the history archive task go out in the same transaction via the outbox.
func (s *service) completeWithSuccess(c context.Context, sessionUID string, paymentReference string, deltas []CheckoutDelta) (CheckoutContext, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Checkout of session %s succeeded, applying %d stock deltas", sessionUID, len(deltas))

	var checkoutCtx CheckoutContext
	err := s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		checkoutCtx, found, err = s.checkoutStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found || !checkoutCtx.IsInFlight() {
			return myerrors.NewInternalError(fmt.Errorf("no checkout in flight for session %s", sessionUID))
		}

		err = s.applyDeltas(c, deltas)
		if err != nil {
			return err
		}

		err = s.clearSubmittedLines(c, sessionUID, checkoutCtx.Lines)
		if err != nil {
			return err
		}

		now := s.nower.Now()
		checkoutCtx.Status = CheckoutStatusSuccess
		checkoutCtx.PaymentReference = paymentReference
		checkoutCtx.CompletedAt = &now

		err = s.checkoutStore.Put(c, sessionUID, checkoutCtx)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		completedEvent := checkoutCompletedEvent(checkoutCtx)

		err = s.publisher.Publish(c, checkoutevents.TopicName, completedEvent)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return s.enqueueArchiveTask(c, completedEvent)
	})
	if err != nil {
		return CheckoutContext{}, err
	}

	return checkoutCtx, nil
}

func (s *service) completeWithFailure(c context.Context, sessionUID string, reason string) (CheckoutContext, error) {
	var checkoutCtx CheckoutContext
	err := s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		checkoutCtx, found, err = s.checkoutStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found || !checkoutCtx.IsInFlight() {
			return myerrors.NewInternalError(fmt.Errorf("no checkout in flight for session %s", sessionUID))
		}

		now := s.nower.Now()
		checkoutCtx.Status = CheckoutStatusFailure
		checkoutCtx.FailureReason = reason
		checkoutCtx.CompletedAt = &now

		err = s.checkoutStore.Put(c, sessionUID, checkoutCtx)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return CheckoutContext{}, err
	}

	return checkoutCtx, nil
}

// applyDeltas decrements stock for each delta the checkout service applied.
// Items unknown to the local catalog are skipped.
func (s *service) applyDeltas(c context.Context, deltas []CheckoutDelta) error {
	for _, delta := range deltas {
		product, found, err := s.productStore.Get(c, delta.ItemID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			continue
		}

		product.Stock = max(product.Stock-delta.Quantity, 0)

		err = s.productStore.Put(c, delta.ItemID, product)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
	}
	return nil
}

func (s *service) clearSubmittedLines(c context.Context, sessionUID string, submitted []cart.CartLine) error {
	shoppingCart, found, err := s.cartStore.Get(c, sessionUID)
	if err != nil {
		return myerrors.NewInternalError(err)
	}
	if !found {
		return nil
	}

	lineUIDs := make([]string, 0, len(submitted))
	for _, line := range submitted {
		lineUIDs = append(lineUIDs, line.UID)
	}
	shoppingCart.RemoveLinesByUID(lineUIDs)

	now := s.nower.Now()
	shoppingCart.LastModified = &now

	return s.cartStore.Put(c, sessionUID, shoppingCart)
}

func (s *service) enqueueArchiveTask(c context.Context, event checkoutevents.CheckoutCompleted) error {
	taskUID := s.uuider.Create()
	payload, err := json.Marshal(event)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error marshalling archive task payload: %s", err))
	}

	err = s.queuer.Enqueue(c, myqueue.Task{
		UID:            taskUID,
		WebhookURLPath: "/api/history/task/" + taskUID,
		Payload:        payload,
	})
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error enqueuing archive task: %s", err))
	}

	return nil
}

func (s *service) acknowledge(c context.Context, sessionUID string) (CheckoutContext, error) {
	var checkoutCtx CheckoutContext
	err := s.checkoutStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		checkoutCtx, found, err = s.checkoutStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("no checkout state for session %s", sessionUID))
		}

		if checkoutCtx.IsInFlight() {
			return myerrors.NewConflictError(fmt.Errorf("checkout for session %s is still in flight", sessionUID))
		}

		checkoutCtx = CheckoutContext{
			SessionUID: sessionUID,
			Status:     CheckoutStatusIdle,
		}

		err = s.checkoutStore.Put(c, sessionUID, checkoutCtx)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return CheckoutContext{}, err
	}

	return checkoutCtx, nil
}

func (s *service) status(c context.Context, sessionUID string) (CheckoutContext, error) {
	checkoutCtx, found, err := s.checkoutStore.Get(c, sessionUID)
	if err != nil {
		return CheckoutContext{}, myerrors.NewInternalError(err)
	}
	if !found {
		return CheckoutContext{
			SessionUID: sessionUID,
			Status:     CheckoutStatusIdle,
		}, nil
	}

	return checkoutCtx, nil
}

func checkoutRequest(sessionUID string, lines []cart.CartLine) CheckoutRequest {
	req := CheckoutRequest{
		SessionUID: sessionUID,
		Lines:      make([]CheckoutLine, 0, len(lines)),
	}
	for _, line := range lines {
		req.Lines = append(req.Lines, CheckoutLine{
			ItemID:    line.ProductUID,
			Quantity:  line.Quantity,
			Selection: line.Selection,
		})
	}
	return req
}

func checkoutCompletedEvent(checkoutCtx CheckoutContext) checkoutevents.CheckoutCompleted {
	event := checkoutevents.CheckoutCompleted{
		SessionUID:    checkoutCtx.SessionUID,
		TotalInCents:  checkoutCtx.TotalInCents,
		PaymentMethod: checkoutCtx.PaymentMethod,
		Lines:         make([]checkoutevents.CheckoutCompletedLine, 0, len(checkoutCtx.Lines)),
	}
	if checkoutCtx.CompletedAt != nil {
		event.CompletedAt = checkoutCtx.CompletedAt.Format(time.RFC3339)
	}
	for _, line := range checkoutCtx.Lines {
		event.Lines = append(event.Lines, checkoutevents.CheckoutCompletedLine{
			LineUID:      line.UID,
			ProductUID:   line.ProductUID,
			ProductName:  line.ProductName,
			PriceInCents: line.PriceInCents,
			Quantity:     line.Quantity,
			Selection:    line.Selection,
		})
	}
	return event
}
