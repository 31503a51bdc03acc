package cart

import "errors"

var (
	// ErrIncompleteSelection blocks addLine until every declared axis has a label
	ErrIncompleteSelection = errors.New("variant selection is incomplete")

	// ErrOutOfStock signals that no line can be created for a product without stock
	ErrOutOfStock = errors.New("product is out of stock")
)
