package openstack

import (
	"log/slog"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
)

type Config struct {
	Logger *slog.Logger `json:"-"`

	Region string `json:"region"`
	Image  string `json:"image"`
	// Flavor overrides the instance type name when set
	Flavor         string            `json:"flavor"`
	Networks       []servers.Network `json:"networks"`
	SecurityGroups []string          `json:"security-groups"`
	KeyName        string            `json:"key-name"`
}
