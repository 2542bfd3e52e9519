package validator_test

import (
	"errors"
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/orders-inventory/pkg/validator"
)

type status string

func (s status) Validate() error {
	if s == "PENDING" || s == "PAID" {
		return nil
	}
	return errors.New("unknown status")
}

type request struct {
	Sku      string `validate:"required,max=50,sku"`
	Quantity int    `validate:"gt=0"`
	Status   status `validate:"omitempty,enum"`
}

func TestDefaultValidator(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	t.Run("Should accept lowercase sku", func(t *testing.T) {
		assert.NoError(t, v.Validate(request{Sku: " ab-12_x ", Quantity: 1, Status: "PAID"}))
	})

	t.Run("Should reject invalid fields", func(t *testing.T) {
		err := v.Validate(request{Sku: "a b", Quantity: 0, Status: "LOST"})
		require.Error(t, err)
		assert.True(t, validator.IsValidationError(err))

		var fieldErrs govalidator.ValidationErrors
		require.True(t, errors.As(err, &fieldErrs))

		messages := map[string]string{}
		for _, fe := range fieldErrs {
			messages[fe.Field()] = validator.ValidationErrorMessage(fe)
		}
		assert.Equal(t, "must contain only letters, numbers, hyphens and underscores", messages["Sku"])
		assert.Equal(t, "must be greater than 0", messages["Quantity"])
		assert.Equal(t, "invalid enum value: LOST", messages["Status"])
	})
}

func TestDefaultValidator_JSONFieldNames(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	type body struct {
		ProductID string `json:"product_id" validate:"required"`
	}

	var fieldErrs govalidator.ValidationErrors
	require.ErrorAs(t, v.Validate(body{}), &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "product_id", fieldErrs[0].Field())
}
