package validator

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToCartPayload(t *testing.T) {
	assert.NoError(t, (&AddToCartPayload{ItemID: 3}).Validate())

	err := (&AddToCartPayload{ItemID: 0}).Validate()
	require.Error(t, err)
	assert.Contains(t, ValidationErrorResponse(err).Error(), "Field 'ItemID' is invalid: required")

	err = (&AddToCartPayload{ItemID: -4}).Validate()
	require.Error(t, err)
	assert.Contains(t, ValidationErrorResponse(err).Error(), "min")
}

func TestSearchPayload(t *testing.T) {
	assert.NoError(t, (&SearchPayload{Query: "", Scope: "menu"}).Validate())
	assert.NoError(t, (&SearchPayload{Query: "tea", Scope: "home"}).Validate())

	err := (&SearchPayload{Query: "tea", Scope: "x"}).Validate()
	require.Error(t, err)
	assert.Contains(t, ValidationErrorResponse(err).Error(), "Field 'Scope' is invalid: oneof")

	err = (&SearchPayload{Query: strings.Repeat("a", 101), Scope: "menu"}).Validate()
	require.Error(t, err)
	assert.Contains(t, ValidationErrorResponse(err).Error(), "Field 'Query' is invalid: max")
}

func TestCategoryPayload(t *testing.T) {
	assert.NoError(t, (&CategoryPayload{Category: "Tea"}).Validate())
	assert.Error(t, (&CategoryPayload{Category: strings.Repeat("x", 33)}).Validate())
}

func TestValidationErrorResponse_UnknownError(t *testing.T) {
	err := ValidationErrorResponse(errors.New("boom"))
	assert.EqualError(t, err, "invalid validation error format")
}
