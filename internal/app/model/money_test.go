package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_EncodesAsNumber(t *testing.T) {
	raw, err := json.Marshal(OrderItem{ProductID: "p1", Quantity: 1, Price: NewMoney(decimal.RequireFromString("19.90"))})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"price":19.9`)

	zero, err := json.Marshal(Order{})
	require.NoError(t, err)
	assert.Contains(t, string(zero), `"total":0`)
}

func TestMoney_DecodesNumberOrString(t *testing.T) {
	var product Product
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","price":49.5}`), &product))
	assert.True(t, decimal.RequireFromString("49.5").Equal(product.Price.Decimal))

	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","price":"12.00"}`), &product))
	assert.True(t, decimal.NewFromInt(12).Equal(product.Price.Decimal))

	assert.Error(t, json.Unmarshal([]byte(`{"price":"twelve"}`), &product))
}

func TestMoney_LeavesDecimalDefaultsAlone(t *testing.T) {
	assert.False(t, decimal.MarshalJSONWithoutQuotes)

	raw, err := json.Marshal(decimal.RequireFromString("1.50"))
	require.NoError(t, err)
	assert.Equal(t, `"1.5"`, string(raw))
}
