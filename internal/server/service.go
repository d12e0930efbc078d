package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/entity"
	"github.com/joseph-ayodele/access-form-extractor/internal/pipeline"
	"github.com/joseph-ayodele/access-form-extractor/internal/repository"
)

// Processor is the part of the pipeline the service needs.
type Processor interface {
	Process(ctx context.Context, path string) (pipeline.Outcome, error)
	ProcessText(ctx context.Context, raw string) (pipeline.Outcome, error)
}

// ExtractionService implements ExtractionServer.
type ExtractionService struct {
	proc   Processor
	repo   repository.SubmissionRepository
	logger *slog.Logger
}

// NewExtractionService creates the service. repo may be nil, in which case
// GetSubmission answers Unimplemented.
func NewExtractionService(proc Processor, repo repository.SubmissionRepository, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{proc: proc, repo: repo, logger: logger}
}

func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	path := strings.TrimSpace(fields["path"].GetStringValue())
	text := fields["text"].GetStringValue()

	var (
		out pipeline.Outcome
		err error
	)
	switch {
	case path != "" && text != "":
		return nil, common.InvalidArgumentError("exactly one of path or text is required")
	case path != "":
		out, err = s.proc.Process(ctx, path)
	case strings.TrimSpace(text) != "":
		out, err = s.proc.ProcessText(ctx, text)
	default:
		return nil, common.InvalidArgumentError("path or text is required")
	}
	if err != nil {
		s.logger.Warn("server.extract.failed", "request_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.ToStatus(err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"request_id":  out.RequestID,
		"source":      out.Source,
		"method":      out.Document.Method,
		"record":      externalMap(out.Record.Map()),
		"missing":     anySlice(out.Missing),
		"inferred":    anySlice(out.InferredFields()),
		"duration_ms": float64(out.Duration.Milliseconds()),
	})
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return resp, nil
}

func (s *ExtractionService) GetSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.repo == nil {
		return nil, status.Error(codes.Unimplemented, "no submission store configured")
	}
	id, err := uuid.Parse(req.GetFields()["id"].GetStringValue())
	if err != nil {
		return nil, common.InvalidArgumentErrorf("invalid id: %v", err)
	}
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	m, err := submissionMap(sub)
	if err != nil {
		return nil, common.InternalErrorf("decode record: %v", err)
	}
	resp, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return resp, nil
}

func submissionMap(sub *entity.Submission) (map[string]any, error) {
	m := map[string]any{
		"id":                sub.ID.String(),
		"source_path":       sub.SourcePath,
		"filename":          sub.Filename,
		"content_hash":      sub.ContentHash,
		"status":            string(sub.Status),
		"method":            sub.Method,
		"pages":             float64(sub.Pages),
		"missing":           anySlice(sub.MissingFields),
		"inferred":          anySlice(sub.InferredFields),
		"resolver_attempts": float64(sub.ResolverAttempts),
		"duration_ms":       float64(sub.DurationMS),
		"created_at":        sub.CreatedAt.UTC().Format(time.RFC3339),
	}
	if sub.ErrorMessage != nil {
		m["error"] = *sub.ErrorMessage
	}
	if len(sub.Record) > 0 {
		var rec map[string]any
		if err := json.Unmarshal(sub.Record, &rec); err != nil {
			return nil, err
		}
		m["record"] = rec
	}
	return m, nil
}

// externalMap converts []string values, which structpb does not accept.
func externalMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if items, ok := v.([]string); ok {
			out[k] = anySlice(items)
			continue
		}
		out[k] = v
	}
	return out
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// RequestIDInterceptor takes the request id from the x-request-id header
// or generates one, and logs each call.
func RequestIDInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
				ctx = common.WithRequestID(ctx, v[0])
			}
		}
		ctx, rid := common.EnsureRequestID(ctx)
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		level := slog.LevelInfo
		if err != nil && !errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "grpc.request",
			"method", info.FullMethod, "request_id", rid, "code", code.String(), "elapsed_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}

// NewGRPCServer builds a server with the extraction service, the health
// service (reported SERVING) and reflection.
func NewGRPCServer(svc ExtractionServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(RequestIDInterceptor(logger))}, opts...)
	s := grpc.NewServer(opts...)
	RegisterExtractionServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(s)
	return s, hs
}
