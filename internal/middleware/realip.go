package middleware

import (
    "fmt"
    "net"

    "github.com/labstack/echo/v4"
)

// NewIPExtractor decides what c.RealIP() returns.  With no trusted proxies
// the TCP peer address is used and forwarding headers are ignored.
// Otherwise X-Forwarded-For is honoured only through the listed CIDRs; the
// loopback, link-local and private ranges echo trusts by default are not
// trusted implicitly.
func NewIPExtractor(trustedCIDRs []string) (echo.IPExtractor, error) {
    if len(trustedCIDRs) == 0 {
        return echo.ExtractIPDirect(), nil
    }
    opts := []echo.TrustOption{
        echo.TrustLoopback(false),
        echo.TrustLinkLocal(false),
        echo.TrustPrivateNet(false),
    }
    for _, cidr := range trustedCIDRs {
        _, ipNet, err := net.ParseCIDR(cidr)
        if err != nil {
            return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
        }
        opts = append(opts, echo.TrustIPRange(ipNet))
    }
    return echo.ExtractIPFromXFFHeader(opts...), nil
}
