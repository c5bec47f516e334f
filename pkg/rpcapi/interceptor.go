package rpcapi

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cuemby/statekeep/pkg/errs"
	"github.com/cuemby/statekeep/pkg/metrics"
)

type correlationIDKey struct{}

// CorrelationIDFromContext returns the id the CorrelationInterceptor
// attached to ctx, or "" if none is present.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// CorrelationInterceptor stamps every inbound RPC with a fresh
// correlation id (github.com/google/uuid), available downstream via
// CorrelationIDFromContext.
func CorrelationInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx = context.WithValue(ctx, correlationIDKey{}, uuid.NewString())
		return handler(ctx, req)
	}
}

type appIdentified interface {
	GetAppID() string
}

// AccessLogInterceptor writes one structured line per RPC: method, app
// id (if the request carries one), correlation id, latency, and error.
func AccessLogInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		evt := log.Info()
		if err != nil {
			evt = log.Error().Err(err)
		}
		evt = evt.
			Str("method", info.FullMethod).
			Str("correlation_id", CorrelationIDFromContext(ctx)).
			Dur("latency", time.Since(start))
		if ai, ok := req.(appIdentified); ok {
			evt = evt.Str("app", ai.GetAppID())
		}
		evt.Msg("rpc")

		return resp, err
	}
}

// MetricsInterceptor records per-method RPC counts, latency, and
// in-flight gauge to the package-level Prometheus collectors.
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		method := methodName(info.FullMethod)
		timer := metrics.NewTimer()

		metrics.RPCInFlight.Inc()
		defer metrics.RPCInFlight.Dec()

		resp, err := handler(ctx, req)

		timer.ObserveDurationVec(metrics.RPCRequestDuration, method)
		statusLabel := "ok"
		if err != nil {
			statusLabel = status.Code(err).String()
		}
		metrics.RPCRequestsTotal.WithLabelValues(method, statusLabel).Inc()

		return resp, err
	}
}

// ErrorMappingInterceptor translates errs.Error values returned by
// application code into gRPC status errors via errs.ToStatus, so
// handlers can return plain Go errors without knowing about codes.
func ErrorMappingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return resp, err
		}
		return resp, errs.ToStatus(err).Err()
	}
}

var readOnlyPrefixes = []string{"Get", "List", "Checkpoints"}

// ReadOnlyInterceptor rejects any RPC whose method name does not start
// with one of readOnlyPrefixes. Wired onto the optional unix-domain
// socket listener that exposes read-only access outside the normal
// admin-token boundary.
func ReadOnlyInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		name := methodName(info.FullMethod)
		for _, prefix := range readOnlyPrefixes {
			if strings.HasPrefix(name, prefix) {
				return handler(ctx, req)
			}
		}
		return nil, status.Errorf(codes.PermissionDenied, "write operations not allowed on this listener: %s", name)
	}
}

func methodName(fullMethod string) string {
	parts := strings.Split(fullMethod, "/")
	return parts[len(parts)-1]
}

// Chain composes interceptors into a single grpc.UnaryServerInterceptor,
// running them outermost-first — the same order grpc_middleware's
// ChainUnaryServer uses, reimplemented here to avoid pulling in that
// dependency for one helper function.
func Chain(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		chained := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor := interceptors[i]
			next := chained
			chained = func(ctx context.Context, req interface{}) (interface{}, error) {
				return interceptor(ctx, req, info, next)
			}
		}
		return chained(ctx, req)
	}
}
