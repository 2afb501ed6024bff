package vault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var receiptValidator = newReceiptValidator()

func newReceiptValidator() *validator.Validate {
	v := validator.New()
	// "required" alone would accept an all-whitespace vendor
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ValidateReceipt checks the rules a receipt must satisfy before it may
// be persisted: non-blank vendor, positive amount, present date. It
// returns human-readable violation messages; an empty slice means valid.
// This is expected-path form validation, not a fault.
func ValidateReceipt(receipt Receipt) []string {
	err := receiptValidator.Struct(receipt)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.StructField() {
		case "Vendor":
			messages = append(messages, "Vendor is required")
		case "Amount":
			messages = append(messages, "Amount must be greater than 0")
		case "Date":
			messages = append(messages, "Date is required")
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", fe.StructField()))
		}
	}
	return messages
}

// ValidationError carries the violation list when a save is rejected
// before reaching storage
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid receipt: " + strings.Join(e.Violations, "; ")
}
