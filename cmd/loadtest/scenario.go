package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
)

const idempotencyHeader = "idempotency-key"

type loadMode string

const (
	modeCreate          loadMode = "create"
	modeCreateLines     loadMode = "create-lines"
	modeCreateLinesShip loadMode = "create-lines-ship"
)

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(value); mode {
	case modeCreate, modeCreateLines, modeCreateLinesShip:
		return mode, nil
	default:
		return "", errors.Errorf("unsupported mode: %s", value)
	}
}

// orderClient: часть OrderService, которую использует сценарий.
type orderClient interface {
	CreateOrder(ctx context.Context, in *v1.CreateOrderRequest, opts ...grpc.CallOption) (*v1.CreateOrderResponse, error)
	AddLine(ctx context.Context, in *v1.AddLineRequest, opts ...grpc.CallOption) (*v1.AddLineResponse, error)
	RecordShipment(ctx context.Context, in *v1.RecordShipmentRequest, opts ...grpc.CallOption) (*v1.RecordShipmentResponse, error)
}

type runner struct {
	cfg     config
	clients []orderClient
	runID   string
	col     *collector
}

// run раздаёт сценарии воркерам и ждёт их завершения. Ошибки сценариев
// попадают в отчёт и не прерывают прогон.
func (r *runner) run(ctx context.Context) {
	jobs := make(chan int, r.cfg.concurrency*2)

	g, gctx := errgroup.WithContext(ctx)
	for workerID := 0; workerID < r.cfg.concurrency; workerID++ {
		client := r.clients[workerID%len(r.clients)]
		g.Go(func() error {
			for index := range jobs {
				_ = r.scenario(gctx, client, index)
			}
			return nil
		})
	}

	r.dispatch(ctx, jobs)
	_ = g.Wait()
}

func (r *runner) dispatch(ctx context.Context, jobs chan<- int) {
	defer close(jobs)

	var deadline <-chan time.Time
	if r.cfg.duration > 0 {
		timer := time.NewTimer(r.cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (r.cfg.duration <= 0 || r.cfg.totalSet) && i >= r.cfg.total {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

func (r *runner) scenario(ctx context.Context, client orderClient, index int) (err error) {
	started := time.Now()
	defer func() {
		r.col.record(scenarioMethod, time.Since(started), grpcCode(err))
	}()

	customer := r.cfg.customers[index%len(r.cfg.customers)]
	created, err := call(ctx, r, "CreateOrder", r.key("create", index, 0), func(ctx context.Context) (*v1.CreateOrderResponse, error) {
		return client.CreateOrder(ctx, &v1.CreateOrderRequest{CustomerCode: customer})
	})
	if err != nil {
		return err
	}
	orderID := created.Order.Number
	if orderID <= 0 {
		return status.Error(codes.Internal, "create response returned no order number")
	}
	if r.cfg.mode == modeCreate {
		return nil
	}

	for i, product := range r.cfg.products {
		req := &v1.AddLineRequest{OrderID: orderID, ProductRef: product, Quantity: r.cfg.quantity}
		_, err := call(ctx, r, "AddLine", r.key("line", index, i), func(ctx context.Context) (*v1.AddLineResponse, error) {
			return client.AddLine(ctx, req)
		})
		if err != nil {
			return err
		}
	}
	if r.cfg.mode == modeCreateLines {
		return nil
	}

	_, err = call(ctx, r, "RecordShipment", "", func(ctx context.Context) (*v1.RecordShipmentResponse, error) {
		return client.RecordShipment(ctx, &v1.RecordShipmentRequest{OrderID: orderID})
	})
	return err
}

func (r *runner) key(step string, index, n int) string {
	return fmt.Sprintf("lt-%s-%s-%d-%d", step, r.runID, index, n)
}

// call выполняет один RPC с таймаутом и записывает его результат в статистику.
func call[Resp any](ctx context.Context, r *runner, method, key string, fn func(context.Context) (*Resp, error)) (*Resp, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()
	if key != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, idempotencyHeader, key)
	}

	started := time.Now()
	resp, err := fn(ctx)
	r.col.record(method, time.Since(started), grpcCode(err))
	return resp, err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}
