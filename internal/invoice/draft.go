package invoice

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

var (
	// ErrNoCompany is returned when an invoice is exported without a buyer.
	ErrNoCompany = errors.New("invoice: no company selected")
	// ErrNoItems is returned when an invoice is exported without lines.
	ErrNoItems = errors.New("invoice: no items")
	// ErrMaxStock is returned when a line cannot grow past the item's stock.
	ErrMaxStock = errors.New("invoice: maximum stock reached")
	// ErrDraftNotFound is returned for unknown or expired drafts.
	ErrDraftNotFound = errors.New("invoice: draft not found")
	// ErrLineNotFound is returned when a line id does not exist on the draft.
	ErrLineNotFound = errors.New("invoice: line not found")
	// ErrInvoiceNotFound is returned for unknown finalized invoices.
	ErrInvoiceNotFound = errors.New("invoice: not found")
	// ErrDuplicateNumber is returned by stores when an invoice number is taken.
	ErrDuplicateNumber = errors.New("invoice: duplicate number")
)

// Policy controls how lines are added and resized.
type Policy struct {
	// Uncapped lets quantities exceed the item's stock.
	Uncapped bool
	// InitialRate replaces the catalog rate of newly added lines when set.
	InitialRate *decimal.Decimal
}

// Draft is an invoice being assembled. Lines keep insertion order.
type Draft struct {
	ID        string         `json:"id"`
	CompanyID *string        `json:"companyId"`
	Company   *gst.Company   `json:"company"`
	Lines     []gst.LineItem `json:"lines"`
	Options   Options        `json:"options"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// AddItem places item on the draft. An item already present has its
// quantity increased instead of gaining a second line.
func (d *Draft) AddItem(item gst.InventoryItem, qty int, p Policy) (gst.LineItem, error) {
	if qty < 1 {
		qty = 1
	}
	for i := range d.Lines {
		line := &d.Lines[i]
		if line.Item.ID != item.ID {
			continue
		}
		next := line.Quantity + qty
		if !p.Uncapped {
			if line.Quantity >= line.Item.Stock {
				return gst.LineItem{}, ErrMaxStock
			}
			next = min(next, line.Item.Stock)
		}
		line.Quantity = next
		return *line, nil
	}

	if !p.Uncapped {
		if item.Stock <= 0 {
			return gst.LineItem{}, ErrMaxStock
		}
		qty = min(qty, item.Stock)
	}
	if p.InitialRate != nil {
		item.Rate = *p.InitialRate
	}
	line := gst.LineItem{
		ID:       uuid.NewString(),
		Item:     item,
		Quantity: qty,
		Discount: decimal.Zero,
	}
	d.Lines = append(d.Lines, line)
	return line, nil
}

// UpdateQuantity sets a line's quantity, clamped to at least one and, under
// the cap policy, to the item's stock.
func (d *Draft) UpdateQuantity(lineID string, qty int, p Policy) (gst.LineItem, error) {
	line, err := d.line(lineID)
	if err != nil {
		return gst.LineItem{}, err
	}
	if qty < 1 {
		qty = 1
	}
	if !p.Uncapped && line.Item.Stock > 0 {
		qty = min(qty, line.Item.Stock)
	}
	line.Quantity = qty
	return *line, nil
}

// UpdateDiscount sets a line's discount percentage, clamped to [0, 100].
func (d *Draft) UpdateDiscount(lineID string, pct decimal.Decimal) (gst.LineItem, error) {
	line, err := d.line(lineID)
	if err != nil {
		return gst.LineItem{}, err
	}
	line.Discount = decimal.Min(decimal.Max(pct, decimal.Zero), hundred)
	return *line, nil
}

// UpdateRate sets the unit rate of a line. Negative rates become zero.
func (d *Draft) UpdateRate(lineID string, rate decimal.Decimal) (gst.LineItem, error) {
	line, err := d.line(lineID)
	if err != nil {
		return gst.LineItem{}, err
	}
	line.Item.Rate = decimal.Max(rate, decimal.Zero)
	return *line, nil
}

// RemoveItem drops a line from the draft.
func (d *Draft) RemoveItem(lineID string) error {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// Clear resets the draft to its initial state, keeping its identity.
func (d *Draft) Clear(defaults Options) {
	d.Lines = nil
	d.Company = nil
	d.CompanyID = nil
	d.Options = defaults
}

// SetCompany attaches the buyer snapshot. A nil company detaches it.
func (d *Draft) SetCompany(c *gst.Company) {
	if c == nil {
		d.Company = nil
		d.CompanyID = nil
		return
	}
	snapshot := *c
	id := snapshot.ID
	d.Company = &snapshot
	d.CompanyID = &id
}

// SetOptions replaces the invoice options.
func (d *Draft) SetOptions(o Options) {
	d.Options = o
}

// Ready checks the export preconditions.
func (d *Draft) Ready() error {
	if d.Company == nil {
		return ErrNoCompany
	}
	if len(d.Lines) == 0 {
		return ErrNoItems
	}
	return nil
}

func (d *Draft) line(id string) (*gst.LineItem, error) {
	for i := range d.Lines {
		if d.Lines[i].ID == id {
			return &d.Lines[i], nil
		}
	}
	return nil, ErrLineNotFound
}

var hundred = decimal.NewFromInt(100)
