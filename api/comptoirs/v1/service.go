package comptoirsv1

import (
	"context"

	"google.golang.org/grpc"
)

// Полные имена методов.
const (
	OrderServiceName   = "comptoirs.v1.OrderService"
	CatalogServiceName = "comptoirs.v1.CatalogService"

	OrderServiceCreateOrderMethod    = "/" + OrderServiceName + "/CreateOrder"
	OrderServiceAddLineMethod        = "/" + OrderServiceName + "/AddLine"
	OrderServiceUpdateLineMethod     = "/" + OrderServiceName + "/UpdateLine"
	OrderServiceRemoveLineMethod     = "/" + OrderServiceName + "/RemoveLine"
	OrderServiceRecordShipmentMethod = "/" + OrderServiceName + "/RecordShipment"
	OrderServiceGetOrderMethod       = "/" + OrderServiceName + "/GetOrder"
	OrderServiceListOrdersMethod     = "/" + OrderServiceName + "/ListOrders"
	OrderServiceDeleteOrderMethod    = "/" + OrderServiceName + "/DeleteOrder"

	CatalogServiceProductsByCategoryMethod = "/" + CatalogServiceName + "/ProductsByCategory"
	CatalogServiceUnitsSoldMethod          = "/" + CatalogServiceName + "/UnitsSold"
	CatalogServiceListProductsMethod       = "/" + CatalogServiceName + "/ListProducts"
)

// OrderServiceServer: серверная сторона OrderService.
type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*CreateOrderResponse, error)
	AddLine(context.Context, *AddLineRequest) (*AddLineResponse, error)
	UpdateLine(context.Context, *UpdateLineRequest) (*UpdateLineResponse, error)
	RemoveLine(context.Context, *RemoveLineRequest) (*RemoveLineResponse, error)
	RecordShipment(context.Context, *RecordShipmentRequest) (*RecordShipmentResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*GetOrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	DeleteOrder(context.Context, *DeleteOrderRequest) (*DeleteOrderResponse, error)
}

// CatalogServiceServer: серверная сторона CatalogService.
type CatalogServiceServer interface {
	ProductsByCategory(context.Context, *ProductsByCategoryRequest) (*ProductsByCategoryResponse, error)
	UnitsSold(context.Context, *UnitsSoldRequest) (*UnitsSoldResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
}

type unaryHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// handler собирает обработчик unary-метода так же, как это делает protoc-gen-go-grpc.
func handler[S any, Req any, Resp any](fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) unaryHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*Req))
		})
	}
}

// OrderServiceDesc: дескриптор для grpc.Server.RegisterService.
var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: handler(OrderServiceCreateOrderMethod, OrderServiceServer.CreateOrder)},
		{MethodName: "AddLine", Handler: handler(OrderServiceAddLineMethod, OrderServiceServer.AddLine)},
		{MethodName: "UpdateLine", Handler: handler(OrderServiceUpdateLineMethod, OrderServiceServer.UpdateLine)},
		{MethodName: "RemoveLine", Handler: handler(OrderServiceRemoveLineMethod, OrderServiceServer.RemoveLine)},
		{MethodName: "RecordShipment", Handler: handler(OrderServiceRecordShipmentMethod, OrderServiceServer.RecordShipment)},
		{MethodName: "GetOrder", Handler: handler(OrderServiceGetOrderMethod, OrderServiceServer.GetOrder)},
		{MethodName: "ListOrders", Handler: handler(OrderServiceListOrdersMethod, OrderServiceServer.ListOrders)},
		{MethodName: "DeleteOrder", Handler: handler(OrderServiceDeleteOrderMethod, OrderServiceServer.DeleteOrder)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "comptoirs/v1/order_service",
}

// CatalogServiceDesc: дескриптор сервиса отчётов по каталогу.
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProductsByCategory", Handler: handler(CatalogServiceProductsByCategoryMethod, CatalogServiceServer.ProductsByCategory)},
		{MethodName: "UnitsSold", Handler: handler(CatalogServiceUnitsSoldMethod, CatalogServiceServer.UnitsSold)},
		{MethodName: "ListProducts", Handler: handler(CatalogServiceListProductsMethod, CatalogServiceServer.ListProducts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "comptoirs/v1/catalog_service",
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func RegisterCatalogServiceServer(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}
