package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/foodhub/internal/common"
	"github.com/dmitrijs2005/foodhub/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthServicePrefix = "/grpc.health.v1.Health/"

type principalKey struct{}

// PrincipalFromContext returns the caller attached by the interceptors.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}

func (s *GRPCServer) authenticate(ctx context.Context, method string) (context.Context, error) {
	if strings.HasPrefix(method, healthServicePrefix) {
		return ctx, nil
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, v := range md.Get(common.AuthorizationHeaderName) {
			if token, ok := common.BearerToken(v); ok {
				accessToken = token
				break
			}
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	p, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		s.logger.Debug(ctx, "rpc rejected", "method", method, "error", err)
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	return context.WithValue(ctx, principalKey{}, p), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx, err := s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *authenticatedStream) Context() context.Context { return w.ctx }

func (s *GRPCServer) streamAccessTokenInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authenticate(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &authenticatedStream{ServerStream: ss, ctx: ctx})
}
