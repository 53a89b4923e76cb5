// Package mapper converts between domain records and wire DTOs.
//
// Client-settable fields:
//   - beer: beerName, beerStyle, upc, quantityOnHand, price
//   - order: customerRef, paymentAmount, status, lines
//   - line: beerId, orderQuantity, quantityAllocated, status
//
// Everything else (id, version, createdDate, updateDate) is server-managed and
// only flows from domain to DTO.
package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/beer-orders/internal/core/domain"
	"github.com/rl1809/beer-orders/internal/core/dto"
)

func BeerToDTO(b domain.Beer) dto.BeerDTO {
	price := b.Price
	return dto.BeerDTO{
		ID:             b.ID,
		Version:        b.Version,
		BeerName:       ptr(b.BeerName),
		BeerStyle:      ptr(b.BeerStyle),
		UPC:            ptr(b.UPC),
		QuantityOnHand: ptr(b.QuantityOnHand),
		Price:          &price,
		CreatedDate:    timePtr(b.CreatedDate),
		UpdateDate:     timePtr(b.UpdateDate),
	}
}

func BeerFromDTO(in dto.BeerDTO) domain.Beer {
	var b domain.Beer
	ApplyBeerDTO(in, &b)
	return b
}

// ApplyBeerDTO copies the non-nil client-settable fields of in onto b.
func ApplyBeerDTO(in dto.BeerDTO, b *domain.Beer) {
	if in.BeerName != nil {
		b.BeerName = *in.BeerName
	}
	if in.BeerStyle != nil {
		b.BeerStyle = *in.BeerStyle
	}
	if in.UPC != nil {
		b.UPC = *in.UPC
	}
	if in.QuantityOnHand != nil {
		b.QuantityOnHand = *in.QuantityOnHand
	}
	if in.Price != nil {
		b.Price = in.Price.Round(MoneyScale)
	}
}

func OrderToDTO(o domain.BeerOrder) dto.BeerOrderDTO {
	out := dto.BeerOrderDTO{
		ID:          o.ID,
		Version:     o.Version,
		CreatedDate: timePtr(o.CreatedDate),
		UpdateDate:  timePtr(o.UpdateDate),
		Lines:       make([]dto.BeerOrderLineDTO, 0, len(o.Lines)),
	}
	if o.CustomerRef != nil {
		out.CustomerRef = ptr(*o.CustomerRef)
	}
	if o.PaymentAmount != nil {
		out.PaymentAmount = ptr(*o.PaymentAmount)
	}
	if o.Status != "" {
		out.Status = ptr(o.Status)
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, LineToDTO(l))
	}
	return out
}

// OrderFromDTO builds an unsaved order header. Lines are not copied: they
// need beer resolution and are built by the caller with LineFromDTO.
func OrderFromDTO(in dto.BeerOrderDTO) domain.BeerOrder {
	var o domain.BeerOrder
	if in.CustomerRef != nil {
		o.CustomerRef = ptr(*in.CustomerRef)
	}
	o.PaymentAmount = Money(in.PaymentAmount)
	if in.Status != nil {
		o.Status = *in.Status
	}
	return o
}

// ApplyOrderPatch copies the non-nil header fields of in onto o.
func ApplyOrderPatch(in dto.BeerOrderPatchDTO, o *domain.BeerOrder) {
	if in.CustomerRef != nil {
		o.CustomerRef = ptr(*in.CustomerRef)
	}
	if in.PaymentAmount != nil {
		o.PaymentAmount = Money(in.PaymentAmount)
	}
	if in.Status != nil {
		o.Status = *in.Status
	}
}

func LineToDTO(l domain.BeerOrderLine) dto.BeerOrderLineDTO {
	out := dto.BeerOrderLineDTO{
		ID:                l.ID,
		Version:           l.Version,
		BeerID:            ptr(l.BeerID),
		OrderQuantity:     ptr(l.OrderQuantity),
		QuantityAllocated: ptr(l.QuantityAllocated),
		CreatedDate:       timePtr(l.CreatedDate),
		UpdateDate:        timePtr(l.UpdateDate),
	}
	if l.Status != "" {
		out.Status = ptr(l.Status)
	}
	return out
}

// LineFromDTO builds an unsaved line. A missing beer id leaves BeerID zero.
func LineFromDTO(in dto.BeerOrderLineDTO) domain.BeerOrderLine {
	var l domain.BeerOrderLine
	if in.BeerID != nil {
		l.BeerID = *in.BeerID
	}
	if in.OrderQuantity != nil {
		l.OrderQuantity = *in.OrderQuantity
	}
	if in.QuantityAllocated != nil {
		l.QuantityAllocated = *in.QuantityAllocated
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	return l
}

// MoneyScale is the number of decimal places stored for prices and payments.
const MoneyScale = 2

// Money returns a copy of d rounded to MoneyScale, or nil when d is nil.
func Money(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	return ptr(d.Round(MoneyScale))
}

func ptr[T any](v T) *T { return &v }

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
