package grpcsvc

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// statusCode классифицирует доменную ошибку в код gRPC.
func statusCode(err error) codes.Code {
	switch {
	case domain.IsNotFound(err):
		return codes.NotFound
	case domain.IsIntegrityViolation(err):
		return codes.AlreadyExists
	case domain.IsValidation(err):
		return codes.InvalidArgument
	case domain.IsStateConflict(err):
		return codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// toStatus превращает ошибку сервиса в gRPC status. Внутренние ошибки
// логируются, клиенту уходит только обобщённое сообщение.
func toStatus(logger *log.Entry, operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := statusCode(err)
	if code == codes.Internal {
		logger.WithError(err).WithField("operation", operation).Error("request failed")
		return status.Errorf(codes.Internal, "%s failed", operation)
	}
	return status.Error(code, err.Error())
}
