package types

// Network configuration owned by the network-configuration subsystem.
// The supervisory core reads only the mode, timezone, NTP and DST
// fields; everything else passes through to the web/API layer.

type NetworkConfig struct {
	UseDHCP bool   `json:"dhcp"`
	IP      string `json:"ip"`
	Subnet  string `json:"subnet"`
	Gateway string `json:"gateway"`
	DNS     string `json:"dns"`

	Hostname  string `json:"hostname"`
	NTPServer string `json:"ntp"`
	NTPOn     bool   `json:"ntpEnabled"`
	Timezone  string `json:"timezone"` // "+HH:MM"
	DSTOn     bool   `json:"dst"`

	MQTTBroker   string `json:"mqttBroker"`
	MQTTPort     uint16 `json:"mqttPort"`
	MQTTUsername string `json:"mqttUsername"`
	MQTTPassword string `json:"mqttPassword"`
}

// Accessors in the shape the time authority consumes.

func (c *NetworkConfig) NTPEnabled() bool       { return c.NTPOn }
func (c *NetworkConfig) DSTEnabled() bool       { return c.DSTOn }
func (c *NetworkConfig) TimezoneOffset() string { return c.Timezone }

// DefaultNetworkConfig is adopted when the stored configuration fails
// validation at boot.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		UseDHCP:   true,
		IP:        "192.168.1.100",
		Subnet:    "255.255.255.0",
		Gateway:   "192.168.1.1",
		DNS:       "8.8.8.8",
		Hostname:  "open-reactor",
		NTPServer: "pool.ntp.org",
		NTPOn:     false,
		Timezone:  "+13:00",
		DSTOn:     false,
		MQTTPort:  1883,
	}
}
