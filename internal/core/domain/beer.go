package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Beer struct {
	ID             int64
	Version        int // optimistic locking
	BeerName       string
	BeerStyle      string
	UPC            string
	QuantityOnHand int
	Price          decimal.Decimal
	CreatedDate    time.Time
	UpdateDate     time.Time
}
