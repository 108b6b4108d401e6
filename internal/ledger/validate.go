package ledger

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

// Validator checks records before they are recomputed and written.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the record rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Registration only fails on an empty tag.
	_ = v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
		return model.OrderStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("paymentstatus", func(fl validator.FieldLevel) bool {
		return model.PaymentStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("returnstatus", func(fl validator.FieldLevel) bool {
		return model.ReturnStatus(fl.Field().String()).Valid()
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		item := sl.Current().Interface().(model.OrderLineItem)
		subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if item.Discount.GreaterThan(subtotal) {
			sl.ReportError(item.Discount, "discount", "Discount", "ltesubtotal", "")
		}
	}, model.OrderLineItem{})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		item := sl.Current().Interface().(model.ReturnItem)
		if !item.IsReturnable {
			sl.ReportError(item.IsReturnable, "isReturnable", "IsReturnable", "returnable", "")
		}
	}, model.ReturnItem{})

	return &Validator{validate: v}
}

// ValidateOrder checks an order's line items, amounts and statuses.
func (v *Validator) ValidateOrder(order model.Order) error {
	return v.check(order)
}

// ValidateReturn checks a return's line items, quantities and status.
func (v *Validator) ValidateReturn(ret model.Return) error {
	return v.check(ret)
}

func (v *Validator) check(record interface{}) error {
	err := v.validate.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate record: %w", err)
	}

	return toDomainError(fieldErrs[0])
}

// toDomainError converts the first failed rule into a DomainError whose
// Field is the JSON path inside the record, e.g. "items[0].quantity".
func toDomainError(fe validator.FieldError) *model.DomainError {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "orderstatus", "paymentstatus", "returnstatus":
		return model.NewInvalidStatusError(field, fmt.Sprint(fe.Value()))
	case "required":
		return model.NewMissingFieldError(field)
	}

	if field == "items" {
		return &model.DomainError{
			Code:    model.ErrCodeInvalidLineItem,
			Message: "at least one item is required",
			Field:   field,
		}
	}

	code := model.ErrCodeInvalidAmount
	if strings.HasPrefix(field, "items[") {
		code = model.ErrCodeInvalidLineItem
	}

	return &model.DomainError{
		Code:    code,
		Message: fmt.Sprintf("%s %s", field, reason(fe)),
		Field:   field,
	}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "ltefield":
		return "must not exceed quantityOrdered"
	case "ltesubtotal":
		return "must not exceed unitPrice × quantity"
	case "returnable":
		return "is not returnable"
	default:
		return "is invalid"
	}
}
