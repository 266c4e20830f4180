package mdns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/brutella/dnssd"
	"github.com/brutella/dnssd/log"
)

const (
	// PathKey used to store the upload path of the collector in mDNS TXT records
	PathKey     = "path"
	mdnsService = "_http._tcp"
	domain      = "local."
)

var ErrNotFound = errors.New("mdns instance not found")

func init() {
	log.Info.Disable()
}

// ServiceEntry represents a discovered collector with its network details.
type ServiceEntry struct {
	Hostname, IP string
	Port         int
	// upload path advertised in the TXT record
	Path string
}

// URL builds the upload URL the entry advertises.
func (e ServiceEntry) URL() string {
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(e.IP, strconv.Itoa(e.Port)),
		Path:   e.Path,
	}
	return u.String()
}

// Publish advertises a collector via multicast DNS on available network interfaces.
// The service uses the "_http._tcp" service type and "local." domain and carries the
// upload path in its TXT record. It blocks until ctx is canceled.
func Publish(ctx context.Context, instance string, port int, path string) error {
	ip, err := OutboundIP()
	if err != nil {
		return err
	}
	host, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("hostname look-up: %v", err)
	}
	cfg := dnssd.Config{
		Name: instance,
		Type: mdnsService,
		Host: host,
		Port: port,
		IPs:  []net.IP{ip},
		Text: map[string]string{PathKey: path},
	}
	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("registering mdns entry: %v", err)
	}
	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("creating mdns responder: %v", err)
	}
	if _, err = rp.Add(sv); err != nil {
		return fmt.Errorf("adding service to mdns responder: %v", err)
	}
	slog.Info("Publishing Multicast DNS Entry", "instance", instance, "ip", ip.String(), "port", port)
	if err = rp.Respond(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("responding to mdns requests: %v", err)
	}
	return nil
}

// Lookup browses the local network until the named instance shows up or ctx is done.
//
// Returns ErrNotFound if ctx expires before the instance is seen.
func Lookup(ctx context.Context, instance string) (ServiceEntry, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan ServiceEntry, 1)
	addFunc := dnssd.AddFunc(func(e dnssd.BrowseEntry) {
		if e.Name != instance || len(e.IPs) == 0 {
			return
		}
		entry := toServiceEntry(e.Host, e.IPs, e.Port, e.Text)
		select {
		case found <- entry:
			cancel()
		default:
		}
	})
	rmvFunc := dnssd.RmvFunc(func(e dnssd.BrowseEntry) {})

	service := fmt.Sprintf("%s.%s", mdnsService, domain)
	err := dnssd.LookupType(ctx, service, addFunc, rmvFunc)
	select {
	case e := <-found:
		return e, nil
	default:
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return ServiceEntry{}, fmt.Errorf("browsing mdns services: %v", err)
	}
	return ServiceEntry{}, fmt.Errorf("%w: %q", ErrNotFound, instance)
}

func toServiceEntry(host string, ips []net.IP, port int, text map[string]string) ServiceEntry {
	ip := ips[0]
	// prefer ipv4, the first ipv4 address is the primary one
	for _, candidate := range ips {
		if v4 := candidate.To4(); v4 != nil {
			ip = v4
			break
		}
	}
	return ServiceEntry{
		Hostname: host,
		IP:       ip.String(),
		Port:     port,
		Path:     text[PathKey],
	}
}

// OutboundIP gets the preferred outbound ip address of this machine,
// falling back to loopback when no route is available
func OutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		slog.Warn("No outbound route, advertising loopback", "err", err)
		return net.IPv4(127, 0, 0, 1), nil
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address type %T", conn.LocalAddr())
	}
	return addr.IP, nil
}
