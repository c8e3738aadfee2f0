// Package discovery advertises the echo service over mDNS/DNS-SD and
// finds advertised instances from the probe side.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"wifiecho/util"
)

const (
	// ServiceType is the DNS-SD service type of the echo port.
	ServiceType = "_echo._tcp"

	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."

	// DefaultBrowseTimeout bounds Lookup when ctx carries no deadline.
	DefaultBrowseTimeout = 5 * time.Second
)

// registration is the part of *zeroconf.Server the advertiser needs.
type registration interface {
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (registration, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (registration, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces)
}

// Advertiser publishes one echo service instance for as long as Run is
// running.
type Advertiser struct {
	Instance string // defaults to the short host name
	Port     int
	Text     []string
	Logger   *util.Logger

	register registerFunc
}

// Run registers the service and withdraws it when ctx is cancelled.
// Advertising is best effort: a registration failure is logged and Run
// returns nil so that the echo service keeps running.
func (a *Advertiser) Run(ctx context.Context) error {
	logger := a.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	reg := a.register
	if reg == nil {
		reg = zeroconfRegister
	}
	instance := a.Instance
	if instance == "" {
		instance = util.ShortHostname("wifiecho")
	}

	srv, err := reg(instance, ServiceType, ServiceDomain, a.Port, a.Text, nil)
	if err != nil {
		logger.Warn("mdns: cannot advertise %q: %v", instance, err)
		return nil
	}
	logger.Info("mdns: advertising %q as %s.%s port %d", instance, ServiceType, ServiceDomain, a.Port)

	<-ctx.Done()
	srv.Shutdown()
	logger.Verbose("mdns: withdrew %q", instance)
	return nil
}

// Instance is one advertised echo server.
type Instance struct {
	Name     string
	HostName string
	IP       string
	Port     int
}

// Addr returns a dialable host:port.
func (i *Instance) Addr() string {
	return util.FormatAddr(i.IP, i.Port)
}

// Lookup browses for echo services and returns the first one whose
// instance name matches name (any instance when name is empty).
func Lookup(ctx context.Context, name string) (*Instance, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultBrowseTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Instance, 1)
	go func() {
		for entry := range entries {
			inst := parseServiceEntry(entry)
			if inst == nil || (name != "" && !strings.EqualFold(inst.Name, name)) {
				continue
			}
			select {
			case found <- inst:
				cancel()
			default:
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case inst := <-found:
		return inst, nil
	case <-ctx.Done():
		select {
		case inst := <-found:
			return inst, nil
		default:
		}
		if name != "" {
			return nil, fmt.Errorf("echo service %q not found", name)
		}
		return nil, fmt.Errorf("no echo service found")
	}
}

// parseServiceEntry converts a zeroconf entry, preferring IPv4.  It
// returns nil for entries without a usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	if entry == nil || entry.Port == 0 {
		return nil
	}
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}
	return &Instance{
		Name:     entry.Instance,
		HostName: strings.TrimSuffix(entry.HostName, "."),
		IP:       ip,
		Port:     entry.Port,
	}
}
