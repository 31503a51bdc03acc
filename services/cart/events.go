package cart

import (
	"context"
	"fmt"

	"github.com/communityshop/posbackend/lib/myhttp"
	"github.com/communityshop/posbackend/lib/mylog"
	"github.com/communityshop/posbackend/services/catalog/catalogevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.CreateTopic(c, catalogevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", catalogevents.TopicName, err)
	}

	err = s.pubsub.Subscribe(c, catalogevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/cart/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", catalogevents.TopicName, err)
	}

	return nil
}

// OnCatalogRefreshed re-clamps all open carts against the stock ceilings that
// just changed. Must be idempotent: a redelivered event finds nothing left to
// clamp.
func (s *service) OnCatalogRefreshed(c context.Context, topic string, event catalogevents.CatalogRefreshed) error {
	s.logger.Log(c, event.RefreshUID, mylog.SeverityInfo, "Webhook: catalog refresh %s (%d products), re-clamping carts", event.RefreshUID, event.ProductCount)

	return s.reclampAllCarts(c)
}
