// Package discovery advertises the web panel on the local network with
// multicast DNS so phones can find it as <hostname>.local.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// Service is the DNS-SD service type of the panel.
const Service = "_http._tcp"

// DefaultInterval is how often Announcer checks for an address change.
const DefaultInterval = 5 * time.Second

// NewService describes the panel at ip:port under hostname.local.
func NewService(hostname string, port int, ip net.IP) (*mdns.MDNSService, error) {
	if ip == nil {
		return nil, fmt.Errorf("mdns: no address for %s", hostname)
	}
	return mdns.NewMDNSService(
		hostname,
		Service,
		"local.",
		hostname+".local.",
		port,
		[]net.IP{ip},
		[]string{"path=/"},
	)
}

// Advertise starts answering mDNS queries for the panel. Close the result to
// withdraw it.
func Advertise(hostname string, port int, ip net.IP) (io.Closer, error) {
	svc, err := NewService(hostname, port, ip)
	if err != nil {
		return nil, fmt.Errorf("mdns service: %w", err)
	}
	srv, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return nil, fmt.Errorf("mdns server: %w", err)
	}
	return closerFunc(srv.Shutdown), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Port extracts the TCP port from a listen address such as ":80".
func Port(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	if p == "" {
		return 80, nil
	}
	return strconv.Atoi(p)
}

// Announcer keeps an advertisement in step with the station address: nothing
// while offline, re-registered whenever the address changes.
type Announcer struct {
	Hostname string
	Port     int
	Addr     func() string
	Interval time.Duration

	advertise func(hostname string, port int, ip net.IP) (io.Closer, error)
	current   io.Closer
	ip        string
}

// NewAnnouncer returns an announcer polling addr for the station IP.
func NewAnnouncer(hostname string, port int, addr func() string) *Announcer {
	return &Announcer{
		Hostname:  hostname,
		Port:      port,
		Addr:      addr,
		Interval:  DefaultInterval,
		advertise: Advertise,
	}
}

// Run polls until ctx is done, then withdraws the advertisement.
func (a *Announcer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()
	defer a.withdraw()

	a.refresh()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.refresh()
		}
	}
}

func (a *Announcer) refresh() {
	ip := a.Addr()
	if ip == a.ip {
		return
	}
	a.withdraw()
	a.ip = ip
	if ip == "" {
		return
	}

	c, err := a.advertise(a.Hostname, a.Port, net.ParseIP(ip))
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("mDNS advertise failed")
		return
	}
	a.current = c
	log.Info().Str("host", a.Hostname+".local").Str("ip", ip).Int("port", a.Port).Msg("mDNS advertising")
}

func (a *Announcer) withdraw() {
	if a.current == nil {
		return
	}
	if err := a.current.Close(); err != nil {
		log.Warn().Err(err).Msg("mDNS shutdown failed")
	}
	a.current = nil
}
