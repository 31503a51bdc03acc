package checkout

import (
	"time"

	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/lib/mypublisher"
	"github.com/communityshop/posbackend/lib/myqueue"
	"github.com/communityshop/posbackend/lib/mystore"
	"github.com/communityshop/posbackend/lib/mytime"
	"github.com/communityshop/posbackend/lib/myuuid"
	"github.com/communityshop/posbackend/services/cart"
	"github.com/communityshop/posbackend/services/catalog"
	"github.com/communityshop/posbackend/services/payment"
)

type service struct {
	checkoutStore mystore.Store[CheckoutContext]
	cartStore     mystore.Store[cart.Cart]
	productStore  mystore.Store[catalog.Product]
	sender        CheckoutSender
	payer         payment.Payer
	queuer        myqueue.TaskQueuer
	publisher     mypublisher.Publisher
	nower         mytime.Nower
	uuider        myuuid.UUIDer
	logger        mylog.Logger
	timeout       time.Duration
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(checkoutStore mystore.Store[CheckoutContext], cartStore mystore.Store[cart.Cart], productStore mystore.Store[catalog.Product],
	sender CheckoutSender, payer payment.Payer, queuer myqueue.TaskQueuer, publisher mypublisher.Publisher,
	nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger, timeout time.Duration) *service {
	return &service{
		checkoutStore: checkoutStore,
		cartStore:     cartStore,
		productStore:  productStore,
		sender:        sender,
		payer:         payer,
		queuer:        queuer,
		publisher:     publisher,
		nower:         nower,
		uuider:        uuider,
		logger:        logger,
		timeout:       timeout,
	}
}
