package trust

import (
	"net"
	"strings"
)

// DeviceSignals are the platform security signals the assessor consults.
// Any method may fail; a failing signal counts as not suspicious.
type DeviceSignals interface {
	// MockLocationFlag is the platform's own is-mock marker on the current fix.
	MockLocationFlag() (bool, error)
	// MockProviderActive reports a system mock-location provider actively
	// engaged, not merely configured.
	MockProviderActive() (bool, error)
	// Packages lists installed and currently running package names.
	Packages() (installed, running []string, err error)
	// VPNTransport reports whether the active connection uses a VPN transport.
	VPNTransport() (bool, error)
}

// StaticSignals is a DeviceSignals with fixed answers, as reported
// alongside a fix by the device.
type StaticSignals struct {
	MockFlag     bool     `json:"mockFlag"`
	MockProvider bool     `json:"mockProvider"`
	VPN          bool     `json:"vpn"`
	Installed    []string `json:"installed,omitempty"`
	Running      []string `json:"running,omitempty"`
}

func (s StaticSignals) MockLocationFlag() (bool, error)   { return s.MockFlag, nil }
func (s StaticSignals) MockProviderActive() (bool, error) { return s.MockProvider, nil }
func (s StaticSignals) VPNTransport() (bool, error)       { return s.VPN, nil }
func (s StaticSignals) Packages() ([]string, []string, error) {
	return s.Installed, s.Running, nil
}

// InterfaceLister lists network interfaces. net.Interfaces satisfies it.
type InterfaceLister func() ([]net.Interface, error)

// vpnInterface returns the name of the first up interface whose name
// starts with one of prefixes.
func vpnInterface(list InterfaceLister, prefixes []string) (string, error) {
	ifaces, err := list()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		name := strings.ToLower(iface.Name)
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				return iface.Name, nil
			}
		}
	}
	return "", nil
}

func matchPackages(names, known []string) []string {
	var out []string
	for _, n := range names {
		ln := strings.ToLower(strings.TrimSpace(n))
		for _, k := range known {
			if ln == strings.ToLower(k) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
