package checkout

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/communityshop/posbackend/lib/mycontext"
	"github.com/communityshop/posbackend/lib/myhttp"
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/mypublisher"
	"github.com/communityshop/posbackend/lib/myqueue"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/lib/myuuid"
	"github.com/communityshop/posbackend/services/cart"
	"github.com/communityshop/posbackend/services/catalog"
	"github.com/communityshop/posbackend/services/checkout/checkoutevents"
	"github.com/communityshop/posbackend/services/payment"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(checkoutStore mystore.Store[CheckoutContext], cartStore mystore.Store[cart.Cart], productStore mystore.Store[catalog.Product],
	sender CheckoutSender, payer payment.Payer, queuer myqueue.TaskQueuer, publisher mypublisher.Publisher,
	nower mytime.Nower, uuider myuuid.UUIDer, timeout time.Duration) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:  logger,
		service: newService(checkoutStore, cartStore, productStore, sender, payer, queuer, publisher, nower, uuider, logger, timeout),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/session/{sessionUID}/checkout", s.submitPage()).Methods("POST")
	router.HandleFunc("/api/session/{sessionUID}/checkout/ack", s.acknowledgePage()).Methods("PUT")
	router.HandleFunc("/api/session/{sessionUID}/checkout", s.statusPage()).Methods("GET")

	err := s.service.publisher.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *webService) submitPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutCtx, err := s.service.submit(c, mux.Vars(r)["sessionUID"], r.FormValue("paymentMethod"))
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, checkoutCtx)
	}
}

func (s *webService) acknowledgePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutCtx, err := s.service.acknowledge(c, mux.Vars(r)["sessionUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, checkoutCtx)
	}
}

func (s *webService) statusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		checkoutCtx, err := s.service.status(c, mux.Vars(r)["sessionUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, checkoutCtx)
	}
}
