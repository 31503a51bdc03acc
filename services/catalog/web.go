package catalog

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/communityshop/posbackend/lib/mycontext"
	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/myhttp"
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/mypublisher"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/lib/myuuid"
	"github.com/communityshop/posbackend/services/catalog/catalogevents"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(productStore mystore.Store[Product], fetcher CatalogFetcher, nower mytime.Nower, uuider myuuid.UUIDer, publisher mypublisher.Publisher) *webService {
	logger := mylog.New("catalog")
	return &webService{
		logger:  logger,
		service: newService(productStore, fetcher, nower, uuider, logger, publisher),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/products", s.listVisiblePage()).Methods("GET")
	router.HandleFunc("/api/products/all", s.listAllPage()).Methods("GET")
	router.HandleFunc("/api/products/hidden", s.listHiddenPage()).Methods("GET")
	router.HandleFunc("/api/products", s.createProductPage()).Methods("POST")
	router.HandleFunc("/api/products/{productUID}", s.getProductPage()).Methods("GET")
	router.HandleFunc("/api/products/{productUID}", s.updateProductPage()).Methods("PUT")
	router.HandleFunc("/api/products/{productUID}/visibility", s.setVisibilityPage()).Methods("PUT")
	router.HandleFunc("/api/catalog/refresh", s.refreshPage()).Methods("POST")

	err := s.service.publisher.CreateTopic(c, catalogevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", catalogevents.TopicName, err)
	}

	return nil
}

type productListResponse struct {
	Products []Product
}

type refreshResponse struct {
	ProductCount int
}

func (s *webService) listVisiblePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		products, err := s.service.listVisibleProducts(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, productListResponse{Products: products})
	}
}

func (s *webService) listAllPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		products, err := s.service.listAllProducts(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, productListResponse{Products: products})
	}
}

func (s *webService) listHiddenPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		products, err := s.service.listHiddenProducts(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, productListResponse{Products: products})
	}
}

func (s *webService) getProductPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productUID := mux.Vars(r)["productUID"]

		product, err := s.service.getProduct(c, productUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, product)
	}
}

type productForm struct {
	Name   string   `form:"name"`
	Price  string   `form:"price"`
	Stock  int      `form:"stock"`
	Image  string   `form:"image"`
	Sizes  []string `form:"sizes"`
	Colors []string `form:"colors"`
	Types  []string `form:"types"`
}

func (s *webService) createProductPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		form, err := parseProductForm(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		priceInCents, err := parsePriceInCents(form.Price)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(err))
			return
		}

		product, err := s.service.createProduct(c, Product{
			Name:         form.Name,
			PriceInCents: priceInCents,
			Stock:        form.Stock,
			ImageURL:     form.Image,
			Axes:         axesFromForm(form),
		})
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, product)
	}
}

type updateProductForm struct {
	Price string `form:"price"`
	Stock int    `form:"stock"`
}

func (s *webService) updateProductPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productUID := mux.Vars(r)["productUID"]

		form := updateProductForm{}
		err := decodeForm(r, &form)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		priceInCents, err := parsePriceInCents(form.Price)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(err))
			return
		}

		product, err := s.service.updatePriceAndStock(c, productUID, priceInCents, form.Stock)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, product)
	}
}

type visibilityForm struct {
	Hidden bool `form:"hidden"`
}

func (s *webService) setVisibilityPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productUID := mux.Vars(r)["productUID"]

		form := visibilityForm{}
		err := decodeForm(r, &form)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		product, err := s.service.setVisibility(c, productUID, form.Hidden)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, product)
	}
}

func (s *webService) refreshPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		count, err := s.service.refresh(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, refreshResponse{ProductCount: count})
	}
}

func parseProductForm(r *http.Request) (productForm, error) {
	form := productForm{}
	err := decodeForm(r, &form)
	if err != nil {
		return productForm{}, err
	}
	return form, nil
}

func decodeForm(r *http.Request, target any) error {
	err := r.ParseForm()
	if err != nil {
		return fmt.Errorf("error parsing form: %s", err)
	}

	err = formcodec.NewDecoder().Decode(target, r.Form)
	if err != nil {
		return fmt.Errorf("error decoding form: %s", err)
	}

	return nil
}

func axesFromForm(form productForm) []VariantAxis {
	axes := []VariantAxis{}
	if len(form.Sizes) > 0 {
		axes = append(axes, VariantAxis{Name: "size", Labels: form.Sizes})
	}
	if len(form.Colors) > 0 {
		axes = append(axes, VariantAxis{Name: "color", Labels: form.Colors})
	}
	if len(form.Types) > 0 {
		axes = append(axes, VariantAxis{Name: "type", Labels: form.Types})
	}
	return axes
}

func parsePriceInCents(price string) (int64, error) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing price %s: %s", price, err)
	}

	return int64(math.Round(parsed * 100)), nil
}
