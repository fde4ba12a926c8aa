package metrics_collectors

import (
	"context"
	"errors"
	"strings"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/net"
)

// NetworkMetricCollector reports the first non loopback IPv4 address.
type NetworkMetricCollector struct {
	Logger zerolog.Logger
}

// Name returns the identifier for the network metric collector.
func (n *NetworkMetricCollector) Name() string {
	return "network"
}

// Collect sets status.IP.
func (n *NetworkMetricCollector) Collect(ctx context.Context, status *models.DeviceStatus) error {
	interfaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return err
	}

	for _, iface := range interfaces {
		if hasFlag(iface.Flags, "loopback") || !hasFlag(iface.Flags, "up") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, _ := strings.Cut(addr.Addr, "/")
			if strings.Count(ip, ".") == 3 {
				status.IP = ip
				n.Logger.Debug().Str("interface", iface.Name).Str("ip", ip).Msg("Address collected")
				return nil
			}
		}
	}
	return errors.New("no IPv4 address found")
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
