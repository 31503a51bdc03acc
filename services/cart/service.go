package cart

import (
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/mypubsub"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/lib/myuuid"
	"github.com/communityshop/posbackend/services/catalog"
)

type service struct {
	cartStore    mystore.Store[Cart]
	productStore mystore.Store[catalog.Product]
	pubsub       mypubsub.PubSub
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(cartStore mystore.Store[Cart], productStore mystore.Store[catalog.Product], pubsub mypubsub.PubSub, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		cartStore:    cartStore,
		productStore: productStore,
		pubsub:       pubsub,
		nower:        nower,
		uuider:       uuider,
		logger:       logger,
	}
}
