package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/mealsplit/internal/metrics"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC and
// records its status code and latency.
//
// Client errors (a *connect.Error) log at WARN, anything else at ERROR.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)
			elapsed := time.Since(start)

			level, code, attrs := slog.LevelInfo, "ok", []any{
				"procedure", procedure,
				"peer", req.Peer().Addr,
				"duration_ms", elapsed.Milliseconds(),
			}
			msg := "RPC ok"
			if err != nil {
				msg = "RPC error"
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					level, code = slog.LevelWarn, connectErr.Code().String()
					attrs = append(attrs, "code", code, "error", connectErr.Message())
				} else {
					level, code = slog.LevelError, connect.CodeUnknown.String()
					attrs = append(attrs, "error", err)
				}
			}

			slog.Log(ctx, level, msg, attrs...)
			metrics.RecordRPC(procedure, code, elapsed.Seconds())
			return resp, err
		}
	}
}
