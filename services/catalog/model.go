package catalog

import (
	"fmt"
	"time"
)

// VariantAxis is a named dimension of choice on a product (size, color, type)
// with an ordered set of allowed labels.
type VariantAxis struct {
	Name   string
	Labels []string
}

type Product struct {
	UID          string
	Name         string
	PriceInCents int64
	Stock        int
	Axes         []VariantAxis
	ImageURL     string `datastore:",noindex"`
	Hidden       bool
	CreatedAt    time.Time
	LastModified *time.Time
}

func (p Product) GetPriceInCurrency() string {
	return fmt.Sprintf("PHP %.2f", float64(p.PriceInCents)/100.0)
}

func (p Product) AxisNamed(name string) (VariantAxis, bool) {
	for _, axis := range p.Axes {
		if axis.Name == name {
			return axis, true
		}
	}
	return VariantAxis{}, false
}
