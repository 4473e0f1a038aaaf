package cart

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Line is one cart entry: a menu item, its chosen customizations and a
// quantity. LineTotal is recomputed on every mutation.
type Line struct {
	Item           models.Item            `json:"item"`
	Quantity       int                    `json:"quantity"`
	Customizations []models.Customization `json:"customizations"`
	LineTotal      decimal.Decimal        `json:"line_total"`
}

// Store is the durable key-value slot the cart persists itself to after
// every mutation. On the customer device this is local storage; here it is
// a file (see FileStore) or an in-memory fake in tests.
type Store interface {
	Save(lines []Line) error
	Load() ([]Line, error)
}

// Cart holds the customer's in-progress order. It has no server-side
// representation until checkout commits it.
type Cart struct {
	store Store
	lines []Line
}

// New loads the cart from the store. Corrupt or missing stored data must
// never prevent startup, so any load error falls back to an empty cart.
func New(store Store) *Cart {
	c := &Cart{store: store}
	if store == nil {
		return c
	}
	lines, err := store.Load()
	if err != nil {
		utils.ErrorLogger.Printf("discarding stored cart: %v", err)
		return c
	}
	c.lines = lines
	return c
}

// AddLine appends a new line, or merges into an existing line with the same
// identity (item id plus the set of chosen option ids). Selection order
// does not create duplicates: identity sorts option ids, while the line
// keeps insertion order for display.
func (c *Cart) AddLine(item models.Item, customizations []models.Customization, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	key := identityKey(item.ID, customizations)
	for i := range c.lines {
		if identityKey(c.lines[i].Item.ID, c.lines[i].Customizations) == key {
			c.lines[i].Quantity += quantity
			c.lines[i].LineTotal = LineTotal(c.lines[i].Item.BasePrice, c.lines[i].Customizations, c.lines[i].Quantity)
			return c.persist()
		}
	}

	c.lines = append(c.lines, Line{
		Item:           item,
		Quantity:       quantity,
		Customizations: customizations,
		LineTotal:      LineTotal(item.BasePrice, customizations, quantity),
	})
	return c.persist()
}

// RemoveLine removes the line at index. Out-of-range indices are a no-op:
// UI indices can race with a concurrent removal.
func (c *Cart) RemoveLine(index int) error {
	if index < 0 || index >= len(c.lines) {
		return nil
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return c.persist()
}

// SetQuantity updates the quantity of the line at index; a quantity of zero
// or less removes the line.
func (c *Cart) SetQuantity(index int, quantity int) error {
	if quantity <= 0 {
		return c.RemoveLine(index)
	}
	if index < 0 || index >= len(c.lines) {
		return nil
	}
	c.lines[index].Quantity = quantity
	c.lines[index].LineTotal = LineTotal(c.lines[index].Item.BasePrice, c.lines[index].Customizations, quantity)
	return c.persist()
}

// Clear empties the cart, after a successful order or an explicit cancel.
func (c *Cart) Clear() error {
	c.lines = nil
	return c.persist()
}

func (c *Cart) Total() decimal.Decimal {
	return CartTotal(c.lines)
}

func (c *Cart) ItemCount() int {
	return CountItems(c.lines)
}

// Lines returns a copy of the current lines in display order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) persist() error {
	if c.store == nil {
		return nil
	}
	return c.store.Save(c.lines)
}

func identityKey(itemID uint, customizations []models.Customization) string {
	ids := make([]uint, 0, len(customizations))
	for _, cu := range customizations {
		ids = append(ids, cu.OptionID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "%d", itemID)
	for _, id := range ids {
		fmt.Fprintf(&b, "|%d", id)
	}
	return b.String()
}
