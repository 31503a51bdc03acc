package catalogevents

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/myevents"
)

const (
	TopicName            = "catalog"
	catalogRefreshedName = TopicName + ".refreshed"
)

type CatalogEventService interface {
	Subscribe(c context.Context) error
	OnCatalogRefreshed(c context.Context, topic string, event CatalogRefreshed) error
}

func DispatchEvent(c context.Context, reader io.Reader, service CatalogEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case catalogRefreshedName:
		{
			event := CatalogRefreshed{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCatalogRefreshed(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(errors.New(envelope.EventTypeName))
	}
}

// CatalogRefreshed signals that stock ceilings may have changed:
// carts must re-clamp their line quantities.
type CatalogRefreshed struct {
	RefreshUID   string
	ProductCount int
}

func (e CatalogRefreshed) GetEventTypeName() string {
	return catalogRefreshedName
}

func (e CatalogRefreshed) GetAggregateName() string {
	return e.RefreshUID
}
