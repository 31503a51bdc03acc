package history

import (
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/mypubsub"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
)

type service struct {
	historyStore mystore.Store[SaleRecord]
	pubsub       mypubsub.PubSub
	nower        mytime.Nower
	logger       mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(historyStore mystore.Store[SaleRecord], pubsub mypubsub.PubSub, nower mytime.Nower, logger mylog.Logger) *service {
	return &service{
		historyStore: historyStore,
		pubsub:       pubsub,
		nower:        nower,
		logger:       logger,
	}
}
