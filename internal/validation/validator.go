package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/rl1809/beer-orders/internal/core/dto"
)

// New returns a validator with the custom rules the DTOs rely on. Field names
// in errors are taken from the json tags.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(jsonFieldName)

	// notblank rejects strings made only of whitespace
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	v.RegisterStructValidation(orderStructValidation, dto.BeerOrderDTO{})
	v.RegisterStructValidation(orderPatchStructValidation, dto.BeerOrderPatchDTO{})

	return v
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func orderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(dto.BeerOrderDTO)
	if req.PaymentAmount != nil && req.PaymentAmount.IsNegative() {
		sl.ReportError(req.PaymentAmount, "paymentAmount", "PaymentAmount", "gte", "0")
	}
}

func orderPatchStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(dto.BeerOrderPatchDTO)
	if req.PaymentAmount != nil && req.PaymentAmount.IsNegative() {
		sl.ReportError(req.PaymentAmount, "paymentAmount", "PaymentAmount", "gte", "0")
	}
}
