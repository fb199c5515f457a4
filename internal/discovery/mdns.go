// ABOUTME: mDNS discovery for jam servers on the local network
// ABOUTME: Handles advertisement by the simulator and browsing by the player
package discovery

import (
	"fmt"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/mdns"
)

const serviceType = "_promptjam._tcp"

// ServerInfo describes a discovered jam server
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// Addr returns the server's dialable host:port
func (s ServerInfo) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Advertiser announces a jam server over mDNS until stopped
type Advertiser struct {
	server *mdns.Server
}

// Advertise announces a jam server with the given name and port
func Advertise(name string, port int) (*Advertiser, error) {
	ips, err := localIPs()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		name,
		serviceType,
		"",
		"",
		port,
		ips,
		[]string{"path=/promptjam"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Info("advertising jam server", "name", name, "port", port, "type", serviceType)
	return &Advertiser{server: server}, nil
}

// Stop withdraws the advertisement
func (a *Advertiser) Stop() {
	a.server.Shutdown()
}

// Browse queries the local network for jam servers for up to timeout
// and returns every server found.
func Browse(timeout time.Duration) ([]ServerInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 10)
	found := make(chan []ServerInfo, 1)

	go func() {
		var servers []ServerInfo
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			info := ServerInfo{
				Name: entry.Name,
				Host: entry.AddrV4.String(),
				Port: entry.Port,
			}
			log.Info("discovered jam server", "name", info.Name, "addr", info.Addr())
			servers = append(servers, info)
		}
		found <- servers
	}()

	params := &mdns.QueryParam{
		Service: serviceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	}
	err := mdns.Query(params)
	close(entries)
	servers := <-found
	if err != nil {
		return nil, fmt.Errorf("mdns query failed: %w", err)
	}
	return servers, nil
}

// First returns the first jam server discovered within timeout
func First(timeout time.Duration) (ServerInfo, error) {
	servers, err := Browse(timeout)
	if err != nil {
		return ServerInfo{}, err
	}
	if len(servers) == 0 {
		return ServerInfo{}, fmt.Errorf("no jam servers found on the local network")
	}
	return servers[0], nil
}

// localIPs returns the addresses to advertise on
func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip.To4() != nil {
				ips = append(ips, ip)
			}
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no usable network interfaces")
	}
	return ips, nil
}
