package comptoirsv1

import (
	"context"

	"google.golang.org/grpc"
)

// OrderServiceClient: клиент OrderService. Все вызовы идут с JSON-кодеком.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

// CatalogServiceClient: клиент CatalogService.
type CatalogServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogServiceClient(cc grpc.ClientConnInterface) *CatalogServiceClient {
	return &CatalogServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error) {
	return invoke[CreateOrderResponse](ctx, c.cc, OrderServiceCreateOrderMethod, in, opts)
}

func (c *OrderServiceClient) AddLine(ctx context.Context, in *AddLineRequest, opts ...grpc.CallOption) (*AddLineResponse, error) {
	return invoke[AddLineResponse](ctx, c.cc, OrderServiceAddLineMethod, in, opts)
}

func (c *OrderServiceClient) UpdateLine(ctx context.Context, in *UpdateLineRequest, opts ...grpc.CallOption) (*UpdateLineResponse, error) {
	return invoke[UpdateLineResponse](ctx, c.cc, OrderServiceUpdateLineMethod, in, opts)
}

func (c *OrderServiceClient) RemoveLine(ctx context.Context, in *RemoveLineRequest, opts ...grpc.CallOption) (*RemoveLineResponse, error) {
	return invoke[RemoveLineResponse](ctx, c.cc, OrderServiceRemoveLineMethod, in, opts)
}

func (c *OrderServiceClient) RecordShipment(ctx context.Context, in *RecordShipmentRequest, opts ...grpc.CallOption) (*RecordShipmentResponse, error) {
	return invoke[RecordShipmentResponse](ctx, c.cc, OrderServiceRecordShipmentMethod, in, opts)
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*GetOrderResponse, error) {
	return invoke[GetOrderResponse](ctx, c.cc, OrderServiceGetOrderMethod, in, opts)
}

func (c *OrderServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.cc, OrderServiceListOrdersMethod, in, opts)
}

func (c *OrderServiceClient) DeleteOrder(ctx context.Context, in *DeleteOrderRequest, opts ...grpc.CallOption) (*DeleteOrderResponse, error) {
	return invoke[DeleteOrderResponse](ctx, c.cc, OrderServiceDeleteOrderMethod, in, opts)
}

func (c *CatalogServiceClient) ProductsByCategory(ctx context.Context, in *ProductsByCategoryRequest, opts ...grpc.CallOption) (*ProductsByCategoryResponse, error) {
	return invoke[ProductsByCategoryResponse](ctx, c.cc, CatalogServiceProductsByCategoryMethod, in, opts)
}

func (c *CatalogServiceClient) UnitsSold(ctx context.Context, in *UnitsSoldRequest, opts ...grpc.CallOption) (*UnitsSoldResponse, error) {
	return invoke[UnitsSoldResponse](ctx, c.cc, CatalogServiceUnitsSoldMethod, in, opts)
}

func (c *CatalogServiceClient) ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*ListProductsResponse, error) {
	return invoke[ListProductsResponse](ctx, c.cc, CatalogServiceListProductsMethod, in, opts)
}
