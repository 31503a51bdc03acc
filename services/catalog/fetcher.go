package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/myhttpclient"
)

//go:generate mockgen -source=fetcher.go -package catalog -destination fetcher_mock.go CatalogFetcher
type CatalogFetcher interface {
	FetchProducts(c context.Context) ([]Product, error)
}

type httpCatalogFetcher struct {
	baseURL string
	client  myhttpclient.HTTPSender
}

func NewFetcher(baseURL string, client myhttpclient.HTTPSender) CatalogFetcher {
	return &httpCatalogFetcher{
		baseURL: baseURL,
		client:  client,
	}
}

// rawProduct tolerates the loosely typed payload of the remote catalog:
// numeric fields regularly arrive as strings and the product list is
// sometimes wrapped in a "data" envelope.
type rawProduct struct {
	ID     json.RawMessage `json:"id"`
	Name   string          `json:"name"`
	Price  json.RawMessage `json:"price"`
	Stock  json.RawMessage `json:"stock"`
	Image  string          `json:"image"`
	Sizes  []string        `json:"sizes"`
	Colors []string        `json:"colors"`
	Types  []string        `json:"types"`
	Hidden bool            `json:"hidden"`
}

type rawProductList struct {
	Data []rawProduct `json:"data"`
}

func (f *httpCatalogFetcher) FetchProducts(c context.Context) ([]Product, error) {
	url := f.baseURL + "/api/products"

	status, respBody, err := f.client.Send(c, http.MethodGet, url, nil)
	if err != nil {
		return nil, myerrors.NewUnavailableError(fmt.Errorf("error fetching products: %s", err))
	}
	if status != http.StatusOK {
		return nil, myerrors.NewUnavailableError(fmt.Errorf("error fetching products: http status %d", status))
	}

	raws, err := parseProductList(respBody)
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}

	products := make([]Product, 0, len(raws))
	for _, raw := range raws {
		product, ok := normalize(raw)
		if !ok {
			// malformed entry: skip rather than poison the cache
			continue
		}
		products = append(products, product)
	}

	return products, nil
}

func parseProductList(body []byte) ([]rawProduct, error) {
	raws := []rawProduct{}
	if err := json.Unmarshal(body, &raws); err == nil {
		return raws, nil
	}

	wrapped := rawProductList{}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("error parsing product list: %s", err)
	}
	return wrapped.Data, nil
}

// normalize coerces a loosely typed product into the strict Product shape.
// Entries without a usable id or name, or with a negative price or stock,
// are rejected.
func normalize(raw rawProduct) (Product, bool) {
	uid := coerceString(raw.ID)
	if uid == "" || raw.Name == "" {
		return Product{}, false
	}

	price, ok := coercePriceInCents(raw.Price)
	if !ok || price < 0 {
		return Product{}, false
	}

	stock, ok := coerceInt(raw.Stock)
	if !ok || stock < 0 {
		return Product{}, false
	}

	axes := []VariantAxis{}
	if len(raw.Sizes) > 0 {
		axes = append(axes, VariantAxis{Name: "size", Labels: raw.Sizes})
	}
	if len(raw.Colors) > 0 {
		axes = append(axes, VariantAxis{Name: "color", Labels: raw.Colors})
	}
	if len(raw.Types) > 0 {
		axes = append(axes, VariantAxis{Name: "type", Labels: raw.Types})
	}

	return Product{
		UID:          uid,
		Name:         raw.Name,
		PriceInCents: price,
		Stock:        stock,
		Axes:         axes,
		ImageURL:     raw.Image,
		Hidden:       raw.Hidden,
	}, true
}

func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return strconv.FormatInt(asNumber, 10)
	}

	return ""
}

func coerceInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var asInt int
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return asInt, true
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parsed, err := strconv.Atoi(strings.TrimSpace(asString))
		if err != nil {
			return 0, false
		}
		return parsed, true
	}

	return 0, false
}

func coercePriceInCents(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return int64(math.Round(asFloat * 100)), true
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(asString), 64)
		if err != nil {
			return 0, false
		}
		return int64(math.Round(parsed * 100)), true
	}

	return 0, false
}
