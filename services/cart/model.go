package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/communityshop/posbackend/services/catalog"
)

// VariantSelection maps an axis name ("size", "color", "type") onto the
// chosen label. Empty for products without variant axes.
type VariantSelection map[string]string

type CartLine struct {
	UID          string
	ProductUID   string
	ProductName  string
	PriceInCents int64
	Selection    VariantSelection
	Quantity     int
}

func (l CartLine) TotalInCents() int64 {
	return l.PriceInCents * int64(l.Quantity)
}

// Cart is the session-scoped shopping state: the lines (insertion order
// preserved) plus the in-progress variant selections per product.
type Cart struct {
	UID          string
	CreatedAt    time.Time
	LastModified *time.Time
	Lines        []CartLine
	Selections   map[string]VariantSelection
}

// TotalInCents is recomputed from current line state on every call
func (cart Cart) TotalInCents() int64 {
	var total int64
	for _, line := range cart.Lines {
		total += line.TotalInCents()
	}
	return total
}

func (cart Cart) GetTotalInCurrency() string {
	return fmt.Sprintf("PHP %.2f", float64(cart.TotalInCents())/100.0)
}

func (cart Cart) IsEmpty() bool {
	return len(cart.Lines) == 0
}

func (cart Cart) LineByUID(lineUID string) (CartLine, int, bool) {
	for idx, line := range cart.Lines {
		if line.UID == lineUID {
			return line, idx, true
		}
	}
	return CartLine{}, -1, false
}

// SnapshotLines returns a deep copy of the current lines, so that an
// in-flight checkout is not affected by later cart edits.
func (cart Cart) SnapshotLines() []CartLine {
	snapshot := make([]CartLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		copied := line
		copied.Selection = make(VariantSelection, len(line.Selection))
		for axis, label := range line.Selection {
			copied.Selection[axis] = label
		}
		snapshot = append(snapshot, copied)
	}
	return snapshot
}

// RemoveLinesByUID drops the lines with the given uids and keeps the rest
// in their original order.
func (cart *Cart) RemoveLinesByUID(lineUIDs []string) {
	toRemove := map[string]bool{}
	for _, uid := range lineUIDs {
		toRemove[uid] = true
	}

	kept := make([]CartLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		if !toRemove[line.UID] {
			kept = append(kept, line)
		}
	}
	cart.Lines = kept
}

// lineIdentity is the merge key of a cart line: the product plus the
// selection restricted to the axes the product actually declares. Two lines
// with the same identity are the same line.
func lineIdentity(product catalog.Product, selection VariantSelection) string {
	parts := []string{product.UID}
	for _, axis := range product.Axes {
		parts = append(parts, axis.Name+"="+selection[axis.Name])
	}
	return strings.Join(parts, "|")
}

// restrictToAxes keeps only the axes the product declares, so a stray key in
// the selection can never split line identity.
func restrictToAxes(product catalog.Product, selection VariantSelection) VariantSelection {
	restricted := VariantSelection{}
	for _, axis := range product.Axes {
		if label, ok := selection[axis.Name]; ok && label != "" {
			restricted[axis.Name] = label
		}
	}
	return restricted
}

// isCompleteSelection tells whether every axis declared by the product has a
// non-empty label. Products without axes are always complete.
func isCompleteSelection(product catalog.Product, selection VariantSelection) bool {
	for _, axis := range product.Axes {
		if selection[axis.Name] == "" {
			return false
		}
	}
	return true
}
