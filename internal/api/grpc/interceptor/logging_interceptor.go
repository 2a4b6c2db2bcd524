package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"carrental-backend/internal/logger"
)

// LoggingInterceptor logs every call with its status code and latency.
type LoggingInterceptor struct {
	// quiet lists full method names logged at debug level, such as health probes.
	quiet map[string]bool
}

func NewLoggingInterceptor(quietMethods ...string) *LoggingInterceptor {
	quiet := make(map[string]bool, len(quietMethods))
	for _, m := range quietMethods {
		quiet[m] = true
	}
	return &LoggingInterceptor{quiet: quiet}
}

// Unary returns the unary server interceptor.
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		i.log("gRPC call", info.FullMethod, start, err)
		return resp, err
	}
}

// Stream returns the stream server interceptor. Reflection and health watches
// are streams.
func (i *LoggingInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		i.log("gRPC stream", info.FullMethod, start, err)
		return err
	}
}

func (i *LoggingInterceptor) log(msg, method string, start time.Time, err error) {
	args := []any{"method", method, "code", status.Code(err).String(), "duration_ms", time.Since(start).Milliseconds()}
	switch {
	case err != nil:
		logger.Warn(msg+" failed", append(args, "error", err)...)
	case i.quiet[method]:
		logger.Debug(msg, args...)
	default:
		logger.Info(msg, args...)
	}
}
