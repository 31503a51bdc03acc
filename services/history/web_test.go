package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/communityshop/posbackend/lib/myevents"
	"github.com/communityshop/posbackend/lib/mypubsub"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/services/checkout/checkoutevents"
)

var completedCheckout = checkoutevents.CheckoutCompleted{
	SessionUID:    "session_1",
	TotalInCents:  95000,
	PaymentMethod: "cash",
	CompletedAt:   "2026-02-27T10:00:00Z",
	Lines: []checkoutevents.CheckoutCompletedLine{
		{
			LineUID:      "line_1",
			ProductUID:   "prod_shirt",
			ProductName:  "Souvenir shirt",
			PriceInCents: 25000,
			Quantity:     2,
			Selection:    map[string]string{"size": "M"},
		},
		{
			LineUID:      "line_2",
			ProductUID:   "prod_coffee",
			ProductName:  "Coffee beans 1kg",
			PriceInCents: 45000,
			Quantity:     1,
		},
	},
}

func TestHistoryService(t *testing.T) {

	t.Run("Archive on completed checkout event", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, historyStore, _ := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodPost, "/api/history/event", strings.NewReader(createPubsubMessage(completedCheckout)))
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		records, err := historyStore.List(ctx)
		assert.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("Archive is idempotent per line", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, historyStore, _ := setup(t, ctrl)

		// when: same event delivered twice, once via pubsub and once via the task webhook
		request, err := http.NewRequest(http.MethodPost, "/api/history/event", strings.NewReader(createPubsubMessage(completedCheckout)))
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)
		assert.Equal(t, 200, response.Code)

		eventBytes, _ := json.Marshal(completedCheckout)
		request, err = http.NewRequest(http.MethodPut, "/api/history/task/task_1", strings.NewReader(string(eventBytes)))
		assert.NoError(t, err)
		response = httptest.NewRecorder()
		router.ServeHTTP(response, request)
		assert.Equal(t, 200, response.Code)

		// then
		records, err := historyStore.List(ctx)
		assert.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("List history newest first", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, historyStore, _ := setup(t, ctrl)

		// given
		historyStore.Put(ctx, "session_1_line_1", saleRecord("session_1", "line_1", "prod_shirt", 25000, 1, mytime.ExampleTime))
		historyStore.Put(ctx, "session_2_line_1", saleRecord("session_2", "line_1", "prod_coffee", 45000, 2, mytime.ExampleTime.Add(time.Hour)))

		// when
		request, err := http.NewRequest(http.MethodGet, "/api/products/history", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		got := historyListResponse{}
		err = json.Unmarshal(response.Body.Bytes(), &got)
		assert.NoError(t, err)
		assert.Len(t, got.Records, 2)
		assert.Equal(t, "session_2", got.Records[0].SessionUID)
		assert.Equal(t, "session_1", got.Records[1].SessionUID)
	})

	t.Run("Report aggregates revenue and units within the range", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, historyStore, _ := setup(t, ctrl)

		// given
		soldAt := time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)
		historyStore.Put(ctx, "session_1_line_1", saleRecord("session_1", "line_1", "prod_shirt", 25000, 2, soldAt))
		historyStore.Put(ctx, "session_1_line_2", saleRecord("session_1", "line_2", "prod_coffee", 45000, 1, soldAt))
		// outside the requested range
		historyStore.Put(ctx, "session_2_line_1", saleRecord("session_2", "line_1", "prod_shirt", 25000, 5, soldAt.Add(48*time.Hour)))

		// when
		request, err := http.NewRequest(http.MethodGet, "/api/reports?from=2026-02-27&to=2026-02-28", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		got := Report{}
		err = json.Unmarshal(response.Body.Bytes(), &got)
		assert.NoError(t, err)
		assert.Equal(t, int64(95000), got.TotalRevenueInCents)
		assert.Equal(t, 3, got.TotalUnits)
		assert.Len(t, got.ProductTotals, 2)
		assert.Equal(t, "prod_shirt", got.ProductTotals[0].ProductUID)
		assert.Equal(t, int64(50000), got.ProductTotals[0].RevenueInCents)
	})

	t.Run("Report range ends at the current time when to is omitted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, historyStore, nower := setup(t, ctrl)

		// given
		soldAt := time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)
		historyStore.Put(ctx, "session_1_line_1", saleRecord("session_1", "line_1", "prod_shirt", 25000, 2, soldAt))
		// sold after the mocked current time
		historyStore.Put(ctx, "session_2_line_1", saleRecord("session_2", "line_1", "prod_shirt", 25000, 5, soldAt.Add(48*time.Hour)))
		nower.EXPECT().Now().Return(soldAt.Add(time.Hour))

		// when
		request, err := http.NewRequest(http.MethodGet, "/api/reports?from=2026-02-27", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		got := Report{}
		err = json.Unmarshal(response.Body.Bytes(), &got)
		assert.NoError(t, err)
		assert.Equal(t, int64(50000), got.TotalRevenueInCents)
		assert.Equal(t, 2, got.TotalUnits)
	})

	t.Run("Report with invalid range", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _ := setup(t, ctrl)

		// when
		request, err := http.NewRequest(http.MethodGet, "/api/reports?from=2026-02-28&to=2026-02-27", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 400, response.Code)
	})
}

func saleRecord(sessionUID string, lineUID string, productUID string, priceInCents int64, quantity int, soldAt time.Time) SaleRecord {
	return SaleRecord{
		UID:          saleRecordUID(sessionUID, lineUID),
		SessionUID:   sessionUID,
		LineUID:      lineUID,
		ProductUID:   productUID,
		ProductName:  productUID,
		PriceInCents: priceInCents,
		Quantity:     quantity,
		SoldAt:       soldAt,
	}
}

func createPubsubMessage(event checkoutevents.CheckoutCompleted) string {
	eventBytes, _ := json.Marshal(event)
	envelope := myevents.EventEnvelope{
		UID:           "event_1",
		CreatedAt:     mytime.ExampleTime,
		Topic:         checkoutevents.TopicName,
		AggregateUID:  event.SessionUID,
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(eventBytes),
	}
	envelopeBytes, _ := json.Marshal(envelope)

	req := myevents.PushRequest{
		Message: myevents.PushMessage{
			Data: envelopeBytes,
		},
		Subscription: checkoutevents.TopicName,
	}

	reqBytes, _ := json.Marshal(req)

	return string(reqBytes)
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[SaleRecord], *mytime.MockNower) {
	c := context.TODO()
	historyStore, _, _ := mystore.New[SaleRecord](c)
	subscriber := mypubsub.NewMockPubSub(ctrl)
	nower := mytime.NewMockNower(ctrl)

	sut := NewWebService(historyStore, subscriber, nower)
	router := mux.NewRouter()

	// These are called by the following call to RegisterEndpoints()
	subscriber.EXPECT().CreateTopic(c, checkoutevents.TopicName).Return(nil)
	subscriber.EXPECT().Subscribe(c, checkoutevents.TopicName, "http://localhost:8080/api/history/event").Return(nil)

	err := sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return c, router, historyStore, nower
}
