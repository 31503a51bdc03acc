package catalog

import (
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/mypublisher"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/lib/myuuid"
)

type service struct {
	productStore mystore.Store[Product]
	fetcher      CatalogFetcher
	publisher    mypublisher.Publisher
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(productStore mystore.Store[Product], fetcher CatalogFetcher, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger, publisher mypublisher.Publisher) *service {
	return &service{
		productStore: productStore,
		fetcher:      fetcher,
		publisher:    publisher,
		nower:        nower,
		uuider:       uuider,
		logger:       logger,
	}
}
