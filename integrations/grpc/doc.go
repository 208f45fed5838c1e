// Package grpc provides gRPC server interceptors that validate ID tokens.
//
// Unary and streaming interceptors read a Bearer token from the
// "authorization" metadata key, validate it with an idtoken.Validator, and
// put the claims in the handler's context.
//
// # Basic Usage
//
//	import (
//	    idtokengrpc "github.com/auth0/go-idtoken/integrations/grpc"
//	    "google.golang.org/grpc"
//	)
//
//	v, err := idtoken.New(idtoken.WithAuthority("https://tenant.auth0.com/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	req, err := validator.NewRequirements("https://tenant.auth0.com/", clientID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	interceptor, err := idtokengrpc.New(v, req,
//	    idtokengrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// # Status Codes
//
// DefaultErrorHandler maps failures as follows:
//
//   - missing or rejected token: codes.Unauthenticated
//   - issuer, audience, authorized party or organization mismatch: codes.PermissionDenied
//   - malformed authorization metadata: codes.InvalidArgument
//   - key set could not be fetched: codes.Unavailable
//
// # Claims Retrieval
//
//	func (s *server) GetUser(ctx context.Context, req *pb.GetUserRequest) (*pb.User, error) {
//	    claims, err := idtokengrpc.GetClaims(ctx)
//	    if err != nil {
//	        return nil, status.Error(codes.Internal, "failed to get claims")
//	    }
//	    return &pb.User{ID: claims.Subject()}, nil
//	}
package grpc
