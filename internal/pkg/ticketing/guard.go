package ticketing

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when a ticketing host is, or resolves to,
// an address that is not publicly routable.
var ErrBlockedAddress = errors.New("ticketing host is not a public address")

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func blockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		sharedAddressSpace.Contains(addr)
}

// CheckBaseURL validates a user supplied base URL. Hostnames are accepted
// here and checked again against the resolved address at dial time.
func CheckBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errors.New("must be an http(s) URL")
	}
	if u.User != nil {
		return errors.New("must not contain credentials")
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return ErrBlockedAddress
	}
	if addr, err := netip.ParseAddr(host); err == nil && blockedAddr(addr) {
		return ErrBlockedAddress
	}
	return nil
}

// publicOnly runs after name resolution, so it also catches hostnames that
// point at internal addresses.
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || blockedAddr(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func publicHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   publicOnly,
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			// No proxy: the dial check must see the real destination.
			Proxy:                 nil,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}
