package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusNew               OrderStatus = "NEW"
	OrderStatusValidationPending OrderStatus = "VALIDATION_PENDING"
	OrderStatusValidated         OrderStatus = "VALIDATED"
	OrderStatusAllocationPending OrderStatus = "ALLOCATION_PENDING"
	OrderStatusAllocated         OrderStatus = "ALLOCATED"
	OrderStatusPickedUp          OrderStatus = "PICKED_UP"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

type LineStatus string

const (
	LineStatusNew         LineStatus = "NEW"
	LineStatusAllocated   LineStatus = "ALLOCATED"
	LineStatusBackordered LineStatus = "BACKORDERED"
	LineStatusPickedUp    LineStatus = "PICKED_UP"
	LineStatusCancelled   LineStatus = "CANCELLED"
)

// BeerOrder is the order aggregate. It owns Lines: a line removed from the
// slice is deleted when the order is saved.
type BeerOrder struct {
	ID            int64
	Version       int
	CustomerRef   *string
	PaymentAmount *decimal.Decimal
	Status        OrderStatus
	CreatedDate   time.Time
	UpdateDate    time.Time
	Lines         []BeerOrderLine
}

// BeerOrderLine references a beer by id. ID is zero until the line is persisted.
type BeerOrderLine struct {
	ID                int64
	Version           int
	BeerID            int64
	OrderQuantity     int
	QuantityAllocated int
	Status            LineStatus
	CreatedDate       time.Time
	UpdateDate        time.Time
}

func (o *BeerOrder) AddLine(line BeerOrderLine) {
	o.Lines = append(o.Lines, line)
}

// FindLine returns a pointer into Lines so callers can modify the line in place.
func (o *BeerOrder) FindLine(lineID int64) *BeerOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// RemoveLine drops the line with the given id and reports whether one was found.
func (o *BeerOrder) RemoveLine(lineID int64) bool {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy; the pointer fields and the line slice are not shared.
func (o BeerOrder) Clone() BeerOrder {
	c := o
	if o.CustomerRef != nil {
		ref := *o.CustomerRef
		c.CustomerRef = &ref
	}
	if o.PaymentAmount != nil {
		amount := *o.PaymentAmount
		c.PaymentAmount = &amount
	}
	if o.Lines != nil {
		c.Lines = make([]BeerOrderLine, len(o.Lines))
		copy(c.Lines, o.Lines)
	}
	return c
}
