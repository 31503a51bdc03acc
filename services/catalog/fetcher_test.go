package catalog

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/communityshop/posbackend/lib/myhttpclient"
)

func TestFetchProducts(t *testing.T) {

	t.Run("Bare product array", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		c, fetcher, client := setupFetcher(ctrl)
		client.EXPECT().Send(c, http.MethodGet, "http://provider/api/products", nil).Return(200, []byte(`[
			{"id": "prod_1", "name": "Souvenir shirt", "price": 250, "stock": 3, "sizes": ["S", "M", "L"], "colors": ["red"]}
		]`), nil)

		products, err := fetcher.FetchProducts(c)

		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, "prod_1", products[0].UID)
		assert.Equal(t, int64(25000), products[0].PriceInCents)
		assert.Equal(t, 3, products[0].Stock)
		assert.Equal(t, []VariantAxis{
			{Name: "size", Labels: []string{"S", "M", "L"}},
			{Name: "color", Labels: []string{"red"}},
		}, products[0].Axes)
	})

	t.Run("Data envelope with loosely typed fields", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		c, fetcher, client := setupFetcher(ctrl)
		client.EXPECT().Send(c, http.MethodGet, "http://provider/api/products", nil).Return(200, []byte(`{"data": [
			{"id": 42, "name": "Coffee beans 1kg", "price": "450.50", "stock": "10"}
		]}`), nil)

		products, err := fetcher.FetchProducts(c)

		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, "42", products[0].UID)
		assert.Equal(t, int64(45050), products[0].PriceInCents)
		assert.Equal(t, "PHP 450.50", products[0].GetPriceInCurrency())
		assert.Equal(t, 10, products[0].Stock)
		assert.Empty(t, products[0].Axes)
	})

	t.Run("Malformed entries are skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		c, fetcher, client := setupFetcher(ctrl)
		client.EXPECT().Send(c, http.MethodGet, "http://provider/api/products", nil).Return(200, []byte(`[
			{"id": "prod_1", "name": "Valid", "price": 100, "stock": 1},
			{"name": "No id", "price": 100, "stock": 1},
			{"id": "prod_3", "price": 100, "stock": 1},
			{"id": "prod_4", "name": "Negative price", "price": -1, "stock": 1},
			{"id": "prod_5", "name": "Bad stock", "price": 100, "stock": "plenty"}
		]`), nil)

		products, err := fetcher.FetchProducts(c)

		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.Equal(t, "prod_1", products[0].UID)
	})

	t.Run("Provider error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		c, fetcher, client := setupFetcher(ctrl)
		client.EXPECT().Send(c, http.MethodGet, "http://provider/api/products", nil).Return(503, []byte(``), nil)

		_, err := fetcher.FetchProducts(c)

		assert.Error(t, err)
	})
}

func setupFetcher(ctrl *gomock.Controller) (context.Context, CatalogFetcher, *myhttpclient.MockHTTPSender) {
	c := context.TODO()
	client := myhttpclient.NewMockHTTPSender(ctrl)
	return c, NewFetcher("http://provider", client), client
}
