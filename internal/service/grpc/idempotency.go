package grpcsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

const (
	idempotencyKeyHeader = "idempotency-key"
	idempotencyRetention = 24 * time.Hour
	rejectedFallbackText = "previous request with the same idempotency key failed"
)

// idempotent выполняет мутацию не более одного раза на пару (метод, ключ).
// Повтор с тем же телом получает сохранённый ответ или ошибку,
// повтор с другим телом отклоняется.
type idempotent struct {
	repo   domain.IdempotencyRepository
	logger *log.Entry
	now    func() time.Time
}

func withIdempotency[Req any, Resp any](
	ctx context.Context,
	idem *idempotent,
	method string,
	req *Req,
	run func(context.Context) (*Resp, error),
) (*Resp, error) {
	if idem == nil || idem.repo == nil {
		return run(ctx)
	}

	scope, err := scopeFromMetadata(ctx, method)
	if err != nil {
		return nil, err
	}
	fingerprint, err := requestFingerprint(req)
	if err != nil {
		idem.logger.WithError(err).WithField("method", method).Error("fingerprint idempotent request")
		return nil, status.Error(codes.Internal, "failed to initialize idempotent request")
	}

	record, err := idem.repo.Claim(ctx, scope, fingerprint, idem.now().Add(idempotencyRetention))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrIdempotencyPayloadMismatch):
		return nil, status.Error(codes.AlreadyExists, "idempotency key is already used with a different request")
	case errors.Is(err, domain.ErrIdempotencyReplay):
		return replay[Resp](idem, record)
	default:
		idem.logger.WithError(err).WithField("scope", scope.String()).Error("claim idempotency key")
		return nil, status.Error(codes.Internal, "failed to initialize idempotent request")
	}

	resp, runErr := run(ctx)
	idem.resolve(ctx, scope, resp, runErr)
	return resp, runErr
}

// resolve сохраняет исход мутации. Ошибка сохранения не меняет ответ клиенту.
func (i *idempotent) resolve(ctx context.Context, scope domain.IdempotencyScope, resp any, runErr error) {
	state, outcome := domain.IdempotencySucceeded, domain.IdempotencyOutcome{Code: int(codes.OK)}
	if runErr != nil {
		st := status.Convert(runErr)
		code := st.Code()
		if code == codes.OK {
			code = codes.Internal
		}
		state = domain.IdempotencyRejected
		outcome = domain.IdempotencyOutcome{Code: int(code), Body: []byte(st.Message())}
	} else {
		body, err := json.Marshal(resp)
		if err != nil {
			i.logger.WithError(err).WithField("scope", scope.String()).Warn("encode idempotent response")
			return
		}
		outcome.Body = body
	}

	if err := i.repo.Resolve(ctx, scope, state, outcome); err != nil {
		i.logger.WithError(err).WithField("scope", scope.String()).Warn("store idempotency outcome")
	}
}

func replay[Resp any](idem *idempotent, record domain.IdempotencyRecord) (*Resp, error) {
	switch record.Status {
	case domain.IdempotencyInFlight:
		return nil, status.Error(codes.Aborted, "request with the same idempotency key is still in flight")
	case domain.IdempotencyRejected:
		return nil, rejectedStatus(record.Outcome)
	case domain.IdempotencySucceeded:
		resp := new(Resp)
		if err := json.Unmarshal(record.Outcome.Body, resp); err != nil {
			idem.logger.WithError(err).WithField("scope", record.Scope.String()).Error("decode stored idempotent response")
			return nil, status.Error(codes.Internal, "failed to replay stored response")
		}
		return resp, nil
	default:
		return nil, status.Error(codes.Internal, "unknown idempotency status")
	}
}

// rejectedStatus восстанавливает ошибку отклонённой заявки.
func rejectedStatus(outcome domain.IdempotencyOutcome) error {
	code := codes.Internal
	if outcome.Code > int(codes.OK) && outcome.Code <= int(codes.Unauthenticated) {
		code = codes.Code(uint32(outcome.Code)) //nolint:gosec // range checked above.
	}
	msg := string(outcome.Body)
	if msg == "" {
		msg = rejectedFallbackText
	}
	return status.Error(code, msg)
}

func scopeFromMetadata(ctx context.Context, method string) (domain.IdempotencyScope, error) {
	var key string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(idempotencyKeyHeader); len(values) > 0 {
			key = values[0]
		}
	}
	scope, err := domain.NewIdempotencyScope(method, key)
	if err != nil {
		return domain.IdempotencyScope{}, status.Error(codes.InvalidArgument, "idempotency-key metadata is required")
	}
	return scope, nil
}

// requestFingerprint: sha256 от JSON тела запроса. Метод входит в scope и
// в отпечаток не включается.
func requestFingerprint(req any) (string, error) {
	if req == nil {
		return "", errors.New("request is nil")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
