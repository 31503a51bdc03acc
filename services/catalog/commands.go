package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/services/catalog/catalogevents"
)

func (s *service) listAllProducts(c context.Context) ([]Product, error) {
	products, err := s.productStore.List(c)
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}

	// TODO sort in database
	sort.Slice(products, func(i, j int) bool {
		return products[i].Name < products[j].Name
	})
	return products, nil
}

// listVisibleProducts is derived on every call: no cached filtered copy
func (s *service) listVisibleProducts(c context.Context) ([]Product, error) {
	products, err := s.listAllProducts(c)
	if err != nil {
		return nil, err
	}

	visible := []Product{}
	for _, p := range products {
		if !p.Hidden {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

func (s *service) listHiddenProducts(c context.Context) ([]Product, error) {
	products, err := s.listAllProducts(c)
	if err != nil {
		return nil, err
	}

	hidden := []Product{}
	for _, p := range products {
		if p.Hidden {
			hidden = append(hidden, p)
		}
	}
	return hidden, nil
}

func (s *service) getProduct(c context.Context, productUID string) (Product, error) {
	product, found, err := s.productStore.Get(c, productUID)
	if err != nil {
		return Product{}, myerrors.NewInternalError(err)
	}
	if !found {
		return Product{}, myerrors.NewNotFoundError(fmt.Errorf("product with uid %s not found", productUID))
	}

	return product, nil
}

// refresh replaces the cached catalog with what the remote provider reports.
// Products the provider no longer reports are hidden, not deleted: sale
// history keeps pointing at them. A fetch error leaves the previous cache
// untouched.
func (s *service) refresh(c context.Context) (int, error) {
	s.logger.Log(c, "", mylog.SeverityInfo, "Refreshing catalog from remote provider")

	fetched, err := s.fetcher.FetchProducts(c)
	if err != nil {
		return 0, err
	}

	now := s.nower.Now()
	refreshUID := s.uuider.Create()

	err = s.productStore.RunInTransaction(c, func(c context.Context) error {
		existing, err := s.productStore.List(c)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		existingByUID := map[string]Product{}
		for _, product := range existing {
			existingByUID[product.UID] = product
		}

		fetchedUIDs := map[string]bool{}
		for _, product := range fetched {
			fetchedUIDs[product.UID] = true

			if previous, found := existingByUID[product.UID]; found {
				product.CreatedAt = previous.CreatedAt
				product.Hidden = previous.Hidden
			} else {
				product.CreatedAt = now
			}
			product.LastModified = &now

			err = s.productStore.Put(c, product.UID, product)
			if err != nil {
				return myerrors.NewInternalError(err)
			}
		}

		for _, product := range existing {
			if fetchedUIDs[product.UID] || product.Hidden {
				continue
			}

			s.logger.Log(c, product.UID, mylog.SeverityInfo, "Product %s vanished from the provider, hiding it", product.UID)
			product.Hidden = true
			product.LastModified = &now

			err = s.productStore.Put(c, product.UID, product)
			if err != nil {
				return myerrors.NewInternalError(err)
			}
		}

		err = s.publisher.Publish(c, catalogevents.TopicName, catalogevents.CatalogRefreshed{
			RefreshUID:   refreshUID,
			ProductCount: len(fetched),
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(fetched), nil
}

func (s *service) createProduct(c context.Context, product Product) (Product, error) {
	product.UID = s.uuider.Create()
	product.CreatedAt = s.nower.Now()

	s.logger.Log(c, product.UID, mylog.SeverityInfo, "Creating new product %s with uid %s", product.Name, product.UID)

	if product.Name == "" {
		return Product{}, myerrors.NewInvalidInputErrorf("product name is mandatory")
	}
	if product.PriceInCents < 0 {
		return Product{}, myerrors.NewInvalidInputErrorf("product price must not be negative")
	}
	if product.Stock < 0 {
		return Product{}, myerrors.NewInvalidInputErrorf("product stock must not be negative")
	}

	err := s.productStore.Put(c, product.UID, product)
	if err != nil {
		return Product{}, myerrors.NewInternalError(err)
	}

	return product, nil
}

// updatePriceAndStock adjusts the two editable product fields. A stock change
// shifts the clamp ceiling of cart lines, so a refresh event is published.
func (s *service) updatePriceAndStock(c context.Context, productUID string, priceInCents int64, stock int) (Product, error) {
	s.logger.Log(c, productUID, mylog.SeverityInfo, "Update price/stock of product %s to %d/%d", productUID, priceInCents, stock)

	if priceInCents < 0 {
		return Product{}, myerrors.NewInvalidInputErrorf("product price must not be negative")
	}
	if stock < 0 {
		return Product{}, myerrors.NewInvalidInputErrorf("product stock must not be negative")
	}

	now := s.nower.Now()

	var product Product
	err := s.productStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		product, found, err = s.productStore.Get(c, productUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("product with uid %s not found", productUID))
		}

		product.PriceInCents = priceInCents
		product.Stock = stock
		product.LastModified = &now

		err = s.productStore.Put(c, productUID, product)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, catalogevents.TopicName, catalogevents.CatalogRefreshed{
			RefreshUID:   productUID,
			ProductCount: 1,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return Product{}, err
	}

	return product, nil
}

func (s *service) setVisibility(c context.Context, productUID string, hidden bool) (Product, error) {
	s.logger.Log(c, productUID, mylog.SeverityInfo, "Set hidden of product %s to %t", productUID, hidden)

	now := s.nower.Now()

	var product Product
	err := s.productStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		product, found, err = s.productStore.Get(c, productUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("product with uid %s not found", productUID))
		}

		product.Hidden = hidden
		product.LastModified = &now

		return s.productStore.Put(c, productUID, product)
	})
	if err != nil {
		return Product{}, err
	}

	return product, nil
}
