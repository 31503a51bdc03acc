package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/communityshop/posbackend/lib/mypublisher"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/lib/myuuid"
	"github.com/communityshop/posbackend/services/catalog/catalogevents"
)

var (
	visibleProduct = Product{
		UID:          "prod_coffee",
		Name:         "Coffee beans 1kg",
		PriceInCents: 45000,
		Stock:        10,
		CreatedAt:    mytime.ExampleTime,
	}
	hiddenProduct = Product{
		UID:          "prod_legacy",
		Name:         "Legacy item",
		PriceInCents: 1000,
		Stock:        1,
		Hidden:       true,
		CreatedAt:    mytime.ExampleTime,
	}
)

func TestCatalogService(t *testing.T) {

	t.Run("List visible products", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _, _, _ := setup(t, ctrl)

		// given
		storer.Put(ctx, visibleProduct.UID, visibleProduct)
		storer.Put(ctx, hiddenProduct.UID, hiddenProduct)

		// when
		response := doRequest(t, router, http.MethodGet, "/api/products", nil)

		// then
		assert.Equal(t, 200, response.Code)
		got := decodeProductList(t, response)
		assert.Len(t, got.Products, 1)
		assert.Equal(t, visibleProduct.UID, got.Products[0].UID)
	})

	t.Run("List hidden products", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _, _, _ := setup(t, ctrl)

		// given
		storer.Put(ctx, visibleProduct.UID, visibleProduct)
		storer.Put(ctx, hiddenProduct.UID, hiddenProduct)

		// when
		response := doRequest(t, router, http.MethodGet, "/api/products/hidden", nil)

		// then
		assert.Equal(t, 200, response.Code)
		got := decodeProductList(t, response)
		assert.Len(t, got.Products, 1)
		assert.Equal(t, hiddenProduct.UID, got.Products[0].UID)
	})

	t.Run("Get product not exists", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _, _, _ := setup(t, ctrl)

		// when
		response := doRequest(t, router, http.MethodGet, "/api/products/unknown", nil)

		// then
		assert.Equal(t, 404, response.Code)
	})

	t.Run("Create product", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, nower, uuider, _ := setup(t, ctrl)

		// given
		uuider.EXPECT().Create().Return("prod_new")
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		// when
		response := doRequest(t, router, http.MethodPost, "/api/products", url.Values{
			"name":   {"Souvenir shirt"},
			"price":  {"250.00"},
			"stock":  {"3"},
			"sizes":  {"S", "M", "L"},
			"colors": {"red", "blue"},
		})

		// then
		assert.Equal(t, 200, response.Code)
		product, found, err := storer.Get(ctx, "prod_new")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(25000), product.PriceInCents)
		assert.Equal(t, 3, product.Stock)
		assert.Len(t, product.Axes, 2)
	})

	t.Run("Update price and stock publishes a refresh", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, publisher, nower, _, _ := setup(t, ctrl)

		// given
		storer.Put(ctx, visibleProduct.UID, visibleProduct)
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		publisher.EXPECT().Publish(gomock.Any(), catalogevents.TopicName, catalogevents.CatalogRefreshed{
			RefreshUID:   visibleProduct.UID,
			ProductCount: 1,
		}).Return(nil)

		// when
		response := doRequest(t, router, http.MethodPut, "/api/products/"+visibleProduct.UID, url.Values{
			"price": {"400.00"},
			"stock": {"2"},
		})

		// then
		assert.Equal(t, 200, response.Code)
		product, _, err := storer.Get(ctx, visibleProduct.UID)
		assert.NoError(t, err)
		assert.Equal(t, int64(40000), product.PriceInCents)
		assert.Equal(t, 2, product.Stock)
	})

	t.Run("Toggle visibility", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, nower, _, _ := setup(t, ctrl)

		// given
		storer.Put(ctx, visibleProduct.UID, visibleProduct)
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		// when
		response := doRequest(t, router, http.MethodPut, "/api/products/"+visibleProduct.UID+"/visibility", url.Values{
			"hidden": {"true"},
		})

		// then
		assert.Equal(t, 200, response.Code)
		product, _, err := storer.Get(ctx, visibleProduct.UID)
		assert.NoError(t, err)
		assert.True(t, product.Hidden)
	})

	t.Run("Refresh replaces the cache and publishes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, publisher, nower, uuider, fetcher := setup(t, ctrl)

		// given
		stale := visibleProduct
		stale.Stock = 10
		storer.Put(ctx, stale.UID, stale)

		restocked := visibleProduct
		restocked.Stock = 2
		fetcher.EXPECT().FetchProducts(gomock.Any()).Return([]Product{restocked}, nil)
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		uuider.EXPECT().Create().Return("refresh_1")
		publisher.EXPECT().Publish(gomock.Any(), catalogevents.TopicName, catalogevents.CatalogRefreshed{
			RefreshUID:   "refresh_1",
			ProductCount: 1,
		}).Return(nil)

		// when
		response := doRequest(t, router, http.MethodPost, "/api/catalog/refresh", nil)

		// then
		assert.Equal(t, 200, response.Code)
		product, _, err := storer.Get(ctx, visibleProduct.UID)
		assert.NoError(t, err)
		assert.Equal(t, 2, product.Stock)
	})

	t.Run("Refresh hides products the provider no longer reports", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, publisher, nower, uuider, fetcher := setup(t, ctrl)

		// given: only the coffee survives at the provider
		storer.Put(ctx, visibleProduct.UID, visibleProduct)
		vanished := Product{
			UID:          "prod_discontinued",
			Name:         "Discontinued item",
			PriceInCents: 5000,
			Stock:        4,
			CreatedAt:    mytime.ExampleTime,
		}
		storer.Put(ctx, vanished.UID, vanished)

		fetcher.EXPECT().FetchProducts(gomock.Any()).Return([]Product{visibleProduct}, nil)
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		uuider.EXPECT().Create().Return("refresh_1")
		publisher.EXPECT().Publish(gomock.Any(), catalogevents.TopicName, catalogevents.CatalogRefreshed{
			RefreshUID:   "refresh_1",
			ProductCount: 1,
		}).Return(nil)

		// when
		response := doRequest(t, router, http.MethodPost, "/api/catalog/refresh", nil)

		// then
		assert.Equal(t, 200, response.Code)
		product, found, err := storer.Get(ctx, vanished.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.True(t, product.Hidden)
		survivor, _, err := storer.Get(ctx, visibleProduct.UID)
		assert.NoError(t, err)
		assert.False(t, survivor.Hidden)
	})

	t.Run("Failed refresh leaves the cache untouched", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _, _, fetcher := setup(t, ctrl)

		// given
		storer.Put(ctx, visibleProduct.UID, visibleProduct)
		fetcher.EXPECT().FetchProducts(gomock.Any()).Return(nil, assert.AnError)

		// when
		response := doRequest(t, router, http.MethodPost, "/api/catalog/refresh", nil)

		// then
		assert.Equal(t, 500, response.Code)
		product, found, err := storer.Get(ctx, visibleProduct.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 10, product.Stock)
	})
}

func doRequest(t *testing.T, router *mux.Router, method string, path string, form url.Values) *httptest.ResponseRecorder {
	body := ""
	if form != nil {
		body = form.Encode()
	}
	request, err := http.NewRequest(method, path, strings.NewReader(body))
	assert.NoError(t, err)
	if form != nil {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func decodeProductList(t *testing.T, response *httptest.ResponseRecorder) productListResponse {
	got := productListResponse{}
	err := json.Unmarshal(response.Body.Bytes(), &got)
	assert.NoError(t, err)
	return got
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[Product], *mypublisher.MockPublisher, *mytime.MockNower, *myuuid.MockUUIDer, *MockCatalogFetcher) {
	c := context.TODO()
	storer, _, _ := mystore.New[Product](c)
	fetcher := NewMockCatalogFetcher(ctrl)
	nower := mytime.NewMockNower(ctrl)
	uuider := myuuid.NewMockUUIDer(ctrl)
	publisher := mypublisher.NewMockPublisher(ctrl)

	sut := NewWebService(storer, fetcher, nower, uuider, publisher)
	router := mux.NewRouter()

	// This is called by the following call to RegisterEndpoints()
	publisher.EXPECT().CreateTopic(c, catalogevents.TopicName).Return(nil)

	err := sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return c, router, storer, publisher, nower, uuider, fetcher
}
