package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"matching-core/internal/api"
	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/engine"
	"matching-core/internal/order"
	"matching-core/internal/quote"
	"matching-core/internal/symbolspec"
)

// IdempotencyKeyMetadata carries the client's deduplication key
const IdempotencyKeyMetadata = "idempotency-key"

type cancelOrderRequest struct {
	Symbol            string `json:"symbol"`
	OrigClientOrderID string `json:"orig_client_order_id"`
	api.CancelOrderRequest
}

type cancelMassQuoteRequest struct {
	Symbol string `json:"symbol"`
	api.CancelMassQuoteRequest
}

type getBookRequest struct {
	Symbol string `json:"symbol"`
}

// Server adapts the engine to the books service
type Server struct {
	engine *engine.Engine
	specs  *symbolspec.Registry
	logger *zap.Logger
	now    func() time.Time
}

func NewServer(eng *engine.Engine, specs *symbolspec.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: eng,
		specs:  specs,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// -------------------- Commands --------------------

func (s *Server) CancelOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req cancelOrderRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	spec, err := s.spec(req.Symbol)
	if err != nil {
		return nil, err
	}
	side := book.Side(req.Side)
	switch {
	case req.FirmID == "":
		return nil, status.Error(codes.InvalidArgument, "firm_id required")
	case req.ClientOrderID == "" || req.OrigClientOrderID == "":
		return nil, status.Error(codes.InvalidArgument, "client_order_id and orig_client_order_id required")
	case !side.IsValid():
		return nil, status.Error(codes.InvalidArgument, "side must be BUY or SELL")
	}

	cmd := order.CancelOrderCommand{
		RequestID: client.RequestID{
			Current:  req.ClientOrderID,
			Original: req.OrigClientOrderID,
		},
		WhoRequested:  client.Client{FirmID: req.FirmID, FirmClientID: req.FirmClientID},
		BookID:        spec.BookID,
		Side:          side,
		WhenRequested: s.now(),
	}
	return s.submit(ctx, cmd, cmd.WhoRequested, req)
}

func (s *Server) CancelMassQuote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req cancelMassQuoteRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	spec, err := s.spec(req.Symbol)
	if err != nil {
		return nil, err
	}
	if req.FirmID == "" {
		return nil, status.Error(codes.InvalidArgument, "firm_id required")
	}

	cmd := quote.CancelMassQuoteCommand{
		WhoRequested:  client.Client{FirmID: req.FirmID, FirmClientID: req.FirmClientID},
		BookID:        spec.BookID,
		WhenRequested: s.now(),
	}
	return s.submit(ctx, cmd, cmd.WhoRequested, req)
}

// -------------------- Queries --------------------

func (s *Server) GetBook(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req getBookRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	spec, err := s.spec(req.Symbol)
	if err != nil {
		return nil, err
	}

	books, err := s.engine.Books(spec.BookID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(api.NewBookResponse(spec, books))
}

// -------------------- Helpers --------------------

func (s *Server) spec(symbol string) (symbolspec.Spec, error) {
	spec, err := s.specs.Get(book.BookID(symbol))
	if err != nil {
		return symbolspec.Spec{}, status.Error(codes.NotFound, err.Error())
	}
	return spec, nil
}

func (s *Server) submit(ctx context.Context, cmd book.Command, who client.Client, payload any) (*structpb.Struct, error) {
	payloadHash, err := engine.ComputePayloadHash(payload)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to compute payload hash")
	}

	envelope := &engine.CommandEnvelope{
		CommandID:      "cmd_" + uuid.New().String(),
		IdempotencyKey: idempotencyKey(ctx),
		WhoRequested:   who,
		PayloadHash:    payloadHash,
		Command:        cmd,
		CreatedAt:      s.now(),
	}

	result := s.engine.Submit(ctx, envelope)
	if result.ErrorCode != engine.ErrorCodeNone {
		s.logger.Warn("grpc command failed",
			zap.String("command_id", envelope.CommandID),
			zap.String("kind", string(cmd.Kind())),
			zap.String("error_code", string(result.ErrorCode)),
			zap.Error(result.Err))
		return nil, status.Error(engineCode(result.ErrorCode), errorMessage(result))
	}

	resp, err := api.NewCommandResponse(envelope, result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encode(resp)
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(IdempotencyKeyMetadata); len(values) > 0 {
		return values[0]
	}
	return ""
}

func decode(in *structpb.Struct, out any) error {
	data, err := in.MarshalJSON()
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(data, out); err != nil {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("invalid request: %v", err))
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func engineCode(code engine.ErrorCode) codes.Code {
	switch code {
	case engine.ErrorCodeInvalidArgument:
		return codes.InvalidArgument
	case engine.ErrorCodeBookNotFound:
		return codes.NotFound
	case engine.ErrorCodeDuplicateRequest:
		return codes.AlreadyExists
	case engine.ErrorCodeConflict:
		return codes.Aborted
	case engine.ErrorCodeUnavailable:
		return codes.Unavailable
	}
	return codes.Internal
}

func errorMessage(result *engine.CommandExecResult) string {
	if result.Err != nil {
		return result.Err.Error()
	}
	return string(result.ErrorCode)
}

func toStatus(err error) error {
	if errors.Is(err, book.ErrBooksNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
