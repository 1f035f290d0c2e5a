package grpcsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{domain.ErrOrderNotFound, codes.NotFound},
		{domain.ErrCustomerNotFound, codes.NotFound},
		{&domain.DuplicateLineError{OrderID: 1, ProductRef: 2}, codes.AlreadyExists},
		{domain.ErrLineQuantityInvalid, codes.InvalidArgument},
		{domain.ErrCategoryCodeInvalid, codes.InvalidArgument},
		{domain.ErrOrderAlreadyShipped, codes.FailedPrecondition},
		{domain.ErrProductDiscontinued, codes.FailedPrecondition},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCode(tt.err), tt.err.Error())
	}
}

func TestToStatus_HidesInternalDetails(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	err := toStatus(logger.WithField("component", "test"), "AddLine", errors.New("pq: connection refused"))
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
	assert.NotContains(t, st.Message(), "connection refused")

	passthrough := status.Error(codes.Aborted, "busy")
	assert.Equal(t, passthrough, toStatus(logger.WithField("component", "test"), "x", passthrough))
}

func TestRejectedStatus(t *testing.T) {
	err := rejectedStatus(domain.IdempotencyOutcome{Code: int(codes.NotFound), Body: []byte("customer not found")})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "customer not found", status.Convert(err).Message())

	err = rejectedStatus(domain.IdempotencyOutcome{Code: int(codes.FailedPrecondition)})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, rejectedFallbackText, status.Convert(err).Message())

	for _, code := range []int{0, 99, -1} {
		assert.Equal(t, codes.Internal, status.Code(rejectedStatus(domain.IdempotencyOutcome{Code: code})))
	}
}

func TestRequestFingerprint(t *testing.T) {
	type req struct {
		OrderID int64 `json:"order_id"`
	}

	a, err := requestFingerprint(&req{OrderID: 1})
	require.NoError(t, err)
	b, err := requestFingerprint(&req{OrderID: 1})
	require.NoError(t, err)
	c, err := requestFingerprint(&req{OrderID: 2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = requestFingerprint(nil)
	require.Error(t, err)
}

func TestScopeFromMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(idempotencyKeyHeader, " key-1 "))
	scope, err := scopeFromMetadata(ctx, "/comptoirs.v1.OrderService/AddLine")
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyScope{Method: "/comptoirs.v1.OrderService/AddLine", Key: "key-1"}, scope)

	_, err = scopeFromMetadata(context.Background(), "/comptoirs.v1.OrderService/AddLine")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
