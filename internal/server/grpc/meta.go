package grpc

import (
	"context"
	"net"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

const forwardedForHeaderName = "x-forwarded-for"

// requestMeta collects the caller address and user agent for audit entries.
// A proxy supplied x-forwarded-for wins over the peer address.
func requestMeta(ctx context.Context) models.RequestMeta {
	var meta models.RequestMeta

	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(forwardedForHeaderName); len(v) > 0 {
		first, _, _ := strings.Cut(v[0], ",")
		meta.IPAddress = strings.TrimSpace(first)
	}
	if v := md.Get(common.UserAgentHeaderName); len(v) > 0 {
		meta.UserAgent = v[0]
	}

	if meta.IPAddress == "" {
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			addr := p.Addr.String()
			if host, _, err := net.SplitHostPort(addr); err == nil {
				addr = host
			}
			meta.IPAddress = addr
		}
	}
	return meta
}
