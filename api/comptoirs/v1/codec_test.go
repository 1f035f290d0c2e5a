package comptoirsv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)
	assert.Equal(t, CodecName, codec.Name())
}

func TestCodecRoundTrip(t *testing.T) {
	var c Codec
	shipped := "1994-08-16"

	data, err := c.Marshal(&GetOrderResponse{Order: Order{
		Number:    99998,
		Customer:  CustomerRef{Code: "ALFKI", CompanyName: "Alfreds Futterkiste"},
		EntryDate: "1994-08-04",
		ShippedAt: &shipped,
		Discount:  "0",
		Lines:     []Line{{ID: 1, OrderNumber: 99998, ProductRef: 98, Quantity: 10}},
	}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"company_name":"Alfreds Futterkiste"`)
	assert.Contains(t, string(data), `"order_number":99998`)

	var got GetOrderResponse
	require.NoError(t, c.Unmarshal(data, &got))
	require.NotNil(t, got.Order.ShippedAt)
	assert.Equal(t, shipped, *got.Order.ShippedAt)
	assert.Equal(t, int32(10), got.Order.Lines[0].Quantity)
}

func TestCodecEmptyPayload(t *testing.T) {
	var req ListProductsRequest
	require.NoError(t, Codec{}.Unmarshal(nil, &req))

	require.Error(t, Codec{}.Unmarshal([]byte("{"), &req))
}

func TestUnshippedOrderEncodesNull(t *testing.T) {
	data, err := Codec{}.Marshal(Order{Number: 1, Lines: []Line{}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"shipped_at":null`)
}
