package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/myhttpclient"
)

type CheckoutRequest struct {
	SessionUID string         `json:"sessionId"`
	Lines      []CheckoutLine `json:"lines"`
}

type CheckoutLine struct {
	ItemID    string            `json:"itemId"`
	Quantity  int               `json:"quantity"`
	Selection map[string]string `json:"selection,omitempty"`
}

// CheckoutDelta is a stock decrement the checkout service applied for one item.
type CheckoutDelta struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type CheckoutResponse struct {
	Accepted bool            `json:"accepted"`
	Reason   string          `json:"reason,omitempty"`
	Deltas   []CheckoutDelta `json:"deltas,omitempty"`
}

// CheckoutSender submits the full line set of a cart in a single request.
// The remote service applies it atomically: all lines or none.
//
//go:generate mockgen -source=sender.go -package checkout -destination sender_mock.go CheckoutSender
type CheckoutSender interface {
	SendCheckout(c context.Context, req CheckoutRequest) (CheckoutResponse, error)
}

type httpCheckoutSender struct {
	baseURL string
	client  myhttpclient.HTTPSender
}

func NewCheckoutSender(baseURL string, client myhttpclient.HTTPSender) CheckoutSender {
	return &httpCheckoutSender{
		baseURL: baseURL,
		client:  client,
	}
}

func (cs *httpCheckoutSender) SendCheckout(c context.Context, req CheckoutRequest) (CheckoutResponse, error) {
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return CheckoutResponse{}, myerrors.NewInternalError(fmt.Errorf("error marshalling checkout request: %s", err))
	}

	httpStatus, respBytes, err := cs.client.Send(c, http.MethodPost, cs.baseURL+"/api/checkout", reqBytes)
	if err != nil {
		return CheckoutResponse{}, myerrors.NewUnavailableError(fmt.Errorf("error sending checkout request: %s", err))
	}
	if httpStatus < 200 || httpStatus >= 300 {
		return CheckoutResponse{}, myerrors.NewUnavailableError(fmt.Errorf("checkout service returned http status %d", httpStatus))
	}

	resp := CheckoutResponse{}
	err = json.Unmarshal(respBytes, &resp)
	if err != nil {
		return CheckoutResponse{}, myerrors.NewInternalError(fmt.Errorf("error parsing checkout response: %s", err))
	}

	return resp, nil
}
