// Package dto holds the wire representations exchanged over HTTP.
//
// Pointer fields distinguish "absent" from a zero value. Server-managed fields
// (id, version, createdDate, updateDate) are populated on output and ignored
// on input.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/beer-orders/internal/core/domain"
)

type BeerDTO struct {
	ID             int64            `json:"id,omitempty"`
	Version        int              `json:"version"`
	BeerName       *string          `json:"beerName" validate:"required,notblank"`
	BeerStyle      *string          `json:"beerStyle" validate:"required,notblank"`
	UPC            *string          `json:"upc" validate:"required,notblank"`
	QuantityOnHand *int             `json:"quantityOnHand" validate:"required,max=2147483647"`
	Price          *decimal.Decimal `json:"price" validate:"required"`
	CreatedDate    *time.Time       `json:"createdDate,omitempty"`
	UpdateDate     *time.Time       `json:"updateDate,omitempty"`
}

type BeerOrderDTO struct {
	ID            int64               `json:"id,omitempty"`
	Version       int                 `json:"version"`
	CustomerRef   *string             `json:"customerRef" validate:"omitempty,max=255"`
	PaymentAmount *decimal.Decimal    `json:"paymentAmount"`
	Status        *domain.OrderStatus `json:"status" validate:"omitempty,oneof=NEW VALIDATION_PENDING VALIDATED ALLOCATION_PENDING ALLOCATED PICKED_UP CANCELLED"`
	CreatedDate   *time.Time          `json:"createdDate,omitempty"`
	UpdateDate    *time.Time          `json:"updateDate,omitempty"`
	Lines         []BeerOrderLineDTO  `json:"lines" validate:"dive"`
}

// BeerOrderPatchDTO carries the header fields a PATCH may change. Lines are
// managed through the line endpoints only.
type BeerOrderPatchDTO struct {
	CustomerRef   *string             `json:"customerRef" validate:"omitempty,max=255"`
	PaymentAmount *decimal.Decimal    `json:"paymentAmount"`
	Status        *domain.OrderStatus `json:"status" validate:"omitempty,oneof=NEW VALIDATION_PENDING VALIDATED ALLOCATION_PENDING ALLOCATED PICKED_UP CANCELLED"`
}

type BeerOrderLineDTO struct {
	ID                int64              `json:"id,omitempty"`
	Version           int                `json:"version"`
	BeerID            *int64             `json:"beerId" validate:"required"`
	OrderQuantity     *int               `json:"orderQuantity" validate:"required,min=1,max=2147483647"`
	QuantityAllocated *int               `json:"quantityAllocated" validate:"omitempty,min=0,max=2147483647"`
	Status            *domain.LineStatus `json:"status" validate:"omitempty,oneof=NEW ALLOCATED BACKORDERED PICKED_UP CANCELLED"`
	CreatedDate       *time.Time         `json:"createdDate,omitempty"`
	UpdateDate        *time.Time         `json:"updateDate,omitempty"`
}

// Page is the listing envelope.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage fills in TotalPages from total and size. size must be positive.
func NewPage[T any](content []T, page, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
	}
}

// PageQuery holds the paging parameters of a listing request. The page bound
// keeps page*size within int64 for sizes up to the 200 cap.
type PageQuery struct {
	Page int `form:"page,default=0" json:"page" validate:"min=0,max=46116860184273879"`
	Size int `form:"size,default=25" json:"size" validate:"min=1"`
}
