package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/windfall/phonoecho_service/internal/errors"
	"github.com/windfall/phonoecho_service/internal/logger"
)

func TestUnaryErrorInterceptor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "nil", err: nil, want: codes.OK},
		{name: "not found", err: errors.NotFound("lesson"), want: codes.NotFound},
		{name: "wrapped validation", err: fmt.Errorf("ctx: %w", errors.Validation("bad")), want: codes.InvalidArgument},
		{name: "status passthrough", err: status.Error(codes.Unavailable, "down"), want: codes.Unavailable},
		{name: "plain error", err: fmt.Errorf("boom"), want: codes.Internal},
	}

	interceptor := UnaryErrorInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Method"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return nil, tt.err
			})
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestUnaryRecoveryInterceptor(t *testing.T) {
	interceptor := UnaryRecoveryInterceptor(logger.NewNop())
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Panic"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
