package cart

import (
	"context"
	"fmt"

	"github.com/communityshop/posbackend/lib/myerrors"
	"github.com/communityshop/posbackend/lib/mylog"
)

func (s *service) startSession(c context.Context) (Cart, error) {
	cart := Cart{
		UID:        s.uuider.Create(),
		CreatedAt:  s.nower.Now(),
		Lines:      []CartLine{},
		Selections: map[string]VariantSelection{},
	}

	s.logger.Log(c, cart.UID, mylog.SeverityInfo, "Starting new cart session with uid %s", cart.UID)

	err := s.cartStore.Put(c, cart.UID, cart)
	if err != nil {
		return Cart{}, myerrors.NewInternalError(err)
	}

	return cart, nil
}

func (s *service) getCart(c context.Context, sessionUID string) (Cart, error) {
	cart, found, err := s.cartStore.Get(c, sessionUID)
	if err != nil {
		return Cart{}, myerrors.NewInternalError(err)
	}
	if !found {
		return Cart{}, myerrors.NewNotFoundError(fmt.Errorf("cart session with uid %s not found", sessionUID))
	}

	return cart, nil
}

// clearCart empties the session on explicit user request. The session itself
// stays usable.
func (s *service) clearCart(c context.Context, sessionUID string) (Cart, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Clearing cart of session %s", sessionUID)

	return s.withCart(c, sessionUID, func(c context.Context, cart *Cart) error {
		cart.Lines = []CartLine{}
		cart.Selections = map[string]VariantSelection{}
		return nil
	})
}

// selectVariant records or overwrites the chosen label for one axis of one
// product. The axis must be one the product declares; labels are not
// validated, the caller offers only valid options. Selections of different
// products never affect each other.
func (s *service) selectVariant(c context.Context, sessionUID string, productUID string, axis string, label string) (Cart, error) {
	if productUID == "" || axis == "" || label == "" {
		return Cart{}, myerrors.NewInvalidInputErrorf("productUid, axis and label are all mandatory")
	}

	return s.withCart(c, sessionUID, func(c context.Context, cart *Cart) error {
		product, found, err := s.productStore.Get(c, productUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("product with uid %s not found", productUID))
		}
		if _, exists := product.AxisNamed(axis); !exists {
			return myerrors.NewInvalidInputErrorf("product %s has no axis %s", productUID, axis)
		}

		if cart.Selections == nil {
			cart.Selections = map[string]VariantSelection{}
		}
		selection, found := cart.Selections[productUID]
		if !found {
			selection = VariantSelection{}
			cart.Selections[productUID] = selection
		}
		selection[axis] = label
		return nil
	})
}

// addLine adds a product (with the session's current variant selection for
// that product) to the cart. Lines with identical identity merge; quantities
// never exceed stock.
func (s *service) addLine(c context.Context, sessionUID string, productUID string, requestedQty int) (Cart, error) {
	if requestedQty < 1 {
		requestedQty = 1
	}

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Adding %d x product %s to cart of session %s", requestedQty, productUID, sessionUID)

	return s.withCart(c, sessionUID, func(c context.Context, cart *Cart) error {
		product, found, err := s.productStore.Get(c, productUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("product with uid %s not found", productUID))
		}

		selection := restrictToAxes(product, cart.Selections[productUID])
		if !isCompleteSelection(product, selection) {
			return myerrors.NewInvalidInputError(fmt.Errorf("product %s: %w", productUID, ErrIncompleteSelection))
		}

		identity := lineIdentity(product, selection)
		for idx, line := range cart.Lines {
			if lineIdentity(product, line.Selection) == identity && line.ProductUID == product.UID {
				merged := min(line.Quantity+requestedQty, product.Stock)
				if merged < 1 {
					// stock dropped to 0 since the line was added
					s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Product %s is out of stock, removing line %s from session %s", productUID, line.UID, sessionUID)
					cart.RemoveLinesByUID([]string{line.UID})
					delete(cart.Selections, productUID)
					return nil
				}

				// merge: cap at stock, silently
				cart.Lines[idx].Quantity = merged
				delete(cart.Selections, productUID)
				return nil
			}
		}

		quantity := min(requestedQty, product.Stock)
		if quantity < 1 {
			return myerrors.NewConflictError(fmt.Errorf("product %s: %w", productUID, ErrOutOfStock))
		}

		cart.Lines = append(cart.Lines, CartLine{
			UID:          s.uuider.Create(),
			ProductUID:   product.UID,
			ProductName:  product.Name,
			PriceInCents: product.PriceInCents,
			Selection:    selection,
			Quantity:     quantity,
		})
		delete(cart.Selections, productUID)

		return nil
	})
}

// updateQuantity shifts a line's quantity by delta, clamped into [1, stock].
// A delta that takes the raw quantity to 0 or below removes the line, as does
// a stock ceiling that has dropped to 0.
func (s *service) updateQuantity(c context.Context, sessionUID string, lineUID string, delta int) (Cart, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Updating quantity of line %s in session %s by %+d", lineUID, sessionUID, delta)

	return s.withCart(c, sessionUID, func(c context.Context, cart *Cart) error {
		line, idx, found := cart.LineByUID(lineUID)
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("cart line with uid %s not found", lineUID))
		}

		product, productFound, err := s.productStore.Get(c, line.ProductUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !productFound {
			return myerrors.NewNotFoundError(fmt.Errorf("product with uid %s not found", line.ProductUID))
		}

		raw := line.Quantity + delta
		if raw <= 0 {
			cart.RemoveLinesByUID([]string{lineUID})
			return nil
		}

		quantity := min(raw, product.Stock)
		if quantity < 1 {
			// stock ceiling has dropped to 0 under this line
			cart.RemoveLinesByUID([]string{lineUID})
			return nil
		}

		cart.Lines[idx].Quantity = quantity
		return nil
	})
}

// removeLine is idempotent: removing an absent line is a no-op
func (s *service) removeLine(c context.Context, sessionUID string, lineUID string) (Cart, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Removing line %s from session %s", lineUID, sessionUID)

	return s.withCart(c, sessionUID, func(c context.Context, cart *Cart) error {
		cart.RemoveLinesByUID([]string{lineUID})
		return nil
	})
}

// reclampAllCarts re-clamps every session's line quantities to the freshly
// observed stock ceilings. A line whose ceiling has dropped to 0 is removed.
func (s *service) reclampAllCarts(c context.Context) error {
	carts, err := s.cartStore.List(c)
	if err != nil {
		return myerrors.NewInternalError(err)
	}

	for _, cart := range carts {
		_, err := s.withCart(c, cart.UID, func(c context.Context, cart *Cart) error {
			return s.reclampCart(c, cart)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *service) reclampCart(c context.Context, cart *Cart) error {
	removed := []string{}
	for idx, line := range cart.Lines {
		product, found, err := s.productStore.Get(c, line.ProductUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			// product disappeared from the catalog: leave the line alone
			continue
		}

		if product.Stock < 1 {
			removed = append(removed, line.UID)
			continue
		}
		if line.Quantity > product.Stock {
			s.logger.Log(c, cart.UID, mylog.SeverityInfo, "Re-clamping line %s of session %s from %d to %d", line.UID, cart.UID, line.Quantity, product.Stock)
			cart.Lines[idx].Quantity = product.Stock
		}
	}

	cart.RemoveLinesByUID(removed)

	return nil
}

// withCart runs a mutation on the stored cart inside a transaction and
// persists the result.
func (s *service) withCart(c context.Context, sessionUID string, f func(c context.Context, cart *Cart) error) (Cart, error) {
	var cart Cart
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		cart, found, err = s.cartStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("cart session with uid %s not found", sessionUID))
		}

		err = f(c, &cart)
		if err != nil {
			return err
		}

		now := s.nower.Now()
		cart.LastModified = &now

		err = s.cartStore.Put(c, sessionUID, cart)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return Cart{}, err
	}

	return cart, nil
}
