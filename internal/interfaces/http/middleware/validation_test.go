package middleware

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	assert.NotNil(t, v)
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	type payload struct {
		CustomerName string `json:"customer_name" binding:"required"`
		Segment      string `json:"segment" binding:"required,segment"`
	}

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	t.Run("reports json field names and messages", func(t *testing.T) {
		err := v.Struct(payload{Segment: "grocery"})
		require.Error(t, err)

		details := ValidationDetails(err)
		require.Len(t, details, 2)

		byField := map[string]string{}
		for _, d := range details {
			byField[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", byField["customer_name"])
		assert.Equal(t, "Must be one of: electronics, furniture", byField["segment"])
	})

	t.Run("accepts valid segments", func(t *testing.T) {
		assert.NoError(t, v.Struct(payload{CustomerName: "Asha Traders", Segment: "electronics"}))
		assert.NoError(t, v.Struct(payload{CustomerName: "Asha Traders", Segment: "furniture"}))
	})

	t.Run("nil for non-validator errors", func(t *testing.T) {
		assert.Nil(t, ValidationDetails(assert.AnError))
	})
}
