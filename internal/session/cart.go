package session

import "github.com/slooze/slooze-web/internal/api"

// Cart is an ordered list of lines, unique by menu item.
type Cart struct {
	lines []api.CartLine
}

// Add increments the line for menuItemID or appends a new line with quantity 1.
func (c *Cart) Add(menuItemID int64) {
	for i := range c.lines {
		if c.lines[i].MenuItemID == menuItemID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, api.CartLine{MenuItemID: menuItemID, Quantity: 1})
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []api.CartLine {
	out := make([]api.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Subtract removes the quantities in sent, dropping lines that reach zero.
// Lines added after sent was taken are kept.
func (c *Cart) Subtract(sent []api.CartLine) {
	for _, line := range sent {
		for i := range c.lines {
			if c.lines[i].MenuItemID == line.MenuItemID {
				c.lines[i].Quantity -= line.Quantity
				break
			}
		}
	}
	kept := c.lines[:0]
	for _, line := range c.lines {
		if line.Quantity > 0 {
			kept = append(kept, line)
		}
	}
	c.lines = kept
}
