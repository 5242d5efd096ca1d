package wifi

import (
	"fmt"
	"net"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

// NMCLI connects through NetworkManager. Each Begin launches
// "nmcli device wifi connect" in the background; Connected watches the
// interface for an IPv4 address.
type NMCLI struct {
	Iface string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewNMCLI returns a connector for the wireless interface iface (e.g. wlan0).
func NewNMCLI(iface string) *NMCLI {
	return &NMCLI{Iface: iface}
}

func (n *NMCLI) Begin(ssid, password string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cmd != nil && n.cmd.Process != nil && n.cmd.ProcessState == nil {
		_ = n.cmd.Process.Kill()
	}

	args := []string{"device", "wifi", "connect", ssid, "ifname", n.Iface}
	if password != "" {
		args = append(args, "password", password)
	}
	cmd := exec.Command("nmcli", args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start nmcli: %w", err)
	}
	n.cmd = cmd
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warn().Err(err).Str("ssid", ssid).Msg("nmcli exited with error")
		}
	}()
	return nil
}

func (n *NMCLI) Connected() bool {
	return n.Address() != ""
}

// Address returns the first IPv4 address on the interface.
func (n *NMCLI) Address() string {
	return InterfaceIPv4(n.Iface)
}

// InterfaceIPv4 returns the first IPv4 address of the named interface, or ""
// if it is down or unaddressed.
func InterfaceIPv4(name string) string {
	ifi, err := net.InterfaceByName(name)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return ""
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return ""
}
