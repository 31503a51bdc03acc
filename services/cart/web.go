package cart

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/communityshop/posbackend/lib/mycontext"
	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/myhttp"
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/mypubsub"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/lib/myuuid"
	"github.com/communityshop/posbackend/services/catalog"
	"github.com/communityshop/posbackend/services/catalog/catalogevents"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cartStore mystore.Store[Cart], productStore mystore.Store[catalog.Product], pubsub mypubsub.PubSub, nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("cart")
	return &webService{
		logger:  logger,
		service: newService(cartStore, productStore, pubsub, nower, uuider, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/session", s.startSessionPage()).Methods("POST")
	router.HandleFunc("/api/session/{sessionUID}/cart", s.getCartPage()).Methods("GET")
	router.HandleFunc("/api/session/{sessionUID}/cart", s.clearCartPage()).Methods("DELETE")
	router.HandleFunc("/api/session/{sessionUID}/cart/line", s.addLinePage()).Methods("POST")
	router.HandleFunc("/api/session/{sessionUID}/cart/line/{lineUID}", s.updateQuantityPage()).Methods("PUT")
	router.HandleFunc("/api/session/{sessionUID}/cart/line/{lineUID}", s.removeLinePage()).Methods("DELETE")
	router.HandleFunc("/api/session/{sessionUID}/selection", s.selectVariantPage()).Methods("PUT")

	// Listen for catalog refreshes
	router.HandleFunc("/api/cart/event", s.handleEventEnvelope()).Methods("POST")

	return s.service.Subscribe(c)
}

type cartResponse struct {
	Cart         Cart
	TotalInCents int64
	Total        string
}

func newCartResponse(cart Cart) cartResponse {
	return cartResponse{
		Cart:         cart,
		TotalInCents: cart.TotalInCents(),
		Total:        cart.GetTotalInCurrency(),
	}
}

func (s *webService) startSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cart, err := s.service.startSession(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cart))
	}
}

func (s *webService) getCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cart, err := s.service.getCart(c, mux.Vars(r)["sessionUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cart))
	}
}

func (s *webService) clearCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cart, err := s.service.clearCart(c, mux.Vars(r)["sessionUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cart))
	}
}

type addLineForm struct {
	ProductUID string `form:"productUid"`
	Quantity   int    `form:"quantity"`
}

func (s *webService) addLinePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form := addLineForm{}
		err := decodeForm(r, &form)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}
		if form.ProductUID == "" {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("missing productUid"))
			return
		}

		cart, err := s.service.addLine(c, mux.Vars(r)["sessionUID"], form.ProductUID, form.Quantity)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cart))
	}
}

func (s *webService) updateQuantityPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		delta, err := strconv.Atoi(r.FormValue("delta"))
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("invalid delta: %s", err)))
			return
		}

		cart, err := s.service.updateQuantity(c, mux.Vars(r)["sessionUID"], mux.Vars(r)["lineUID"], delta)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cart))
	}
}

func (s *webService) removeLinePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		cart, err := s.service.removeLine(c, mux.Vars(r)["sessionUID"], mux.Vars(r)["lineUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cart))
	}
}

type selectVariantForm struct {
	ProductUID string `form:"productUid"`
	Axis       string `form:"axis"`
	Label      string `form:"label"`
}

func (s *webService) selectVariantPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form := selectVariantForm{}
		err := decodeForm(r, &form)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		cart, err := s.service.selectVariant(c, mux.Vars(r)["sessionUID"], form.ProductUID, form.Axis, form.Label)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, newCartResponse(cart))
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := catalogevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}

func decodeForm(r *http.Request, target any) error {
	err := r.ParseForm()
	if err != nil {
		return fmt.Errorf("error parsing form: %s", err)
	}
	return formcodec.NewDecoder().Decode(target, r.Form)
}
