package grpc

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// maxTrackedPeers bounds the limiter table; it is reset when full.
const maxTrackedPeers = 10000

// rateLimitedMethods are the calls an unauthenticated peer can use to probe
// credentials or usernames.
var rateLimitedMethods = map[string]bool{
	api.MethodRegister:         true,
	api.MethodGetSalt:          true,
	api.MethodLogin:            true,
	api.MethodRefreshToken:     true,
	api.MethodInitiateRecovery: true,
	api.MethodFinalizeRecovery: true,
	api.MethodResetKey:         true,
}

type peerLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	peers map[string]*rate.Limiter
}

// newPeerLimiter returns nil when rps is not positive.
func newPeerLimiter(rps float64, burst int) *peerLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &peerLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		peers: make(map[string]*rate.Limiter),
	}
}

func (p *peerLimiter) allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.peers[key]
	if !ok {
		if len(p.peers) >= maxTrackedPeers {
			p.peers = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(p.limit, p.burst)
		p.peers[key] = l
	}
	return l.Allow()
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.limiter == nil {
		return handler(ctx, req)
	}

	method, ok := strings.CutPrefix(info.FullMethod, "/"+api.ServiceName+"/")
	if !ok || !rateLimitedMethods[method] {
		return handler(ctx, req)
	}

	key := peerKey(ctx)
	if !s.limiter.allow(key) {
		s.logger.Warn(ctx, "rate limit exceeded", "peer", key, "method", method)
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}
	return handler(ctx, req)
}
