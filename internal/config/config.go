// Package config holds the process configuration gathered from CLI flags
// or the interactive prompts.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/1ureka/rdt/internal/faults"
	"github.com/1ureka/rdt/internal/protocol"
)

// ErrInvalid marks a configuration that cannot be run.
var ErrInvalid = errors.New("invalid configuration")

// Role is the side of the transfer this process plays.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Transport selects the datagram channel.
type Transport string

const (
	TransportUDP    Transport = "udp"
	TransportWebRTC Transport = "webrtc"
)

// Config stores every run parameter.
type Config struct {
	Role      Role
	Transport Transport

	// Sender
	Port        int    // UDP port to listen on
	Root        string // directory requests are confined to ("" for none)
	MaxSessions int    // concurrent transfers
	WSAddr      string // signaling listen address (webrtc)

	// Receiver
	Host       string // sender host (udp)
	PeerPort   int    // sender port (udp)
	LocalPort  int    // local UDP port, 0 for ephemeral
	RemotePath string // object path requested from the sender
	Dest       string // destination file, overwritten on completion
	WSURL      string // signaling URL including the PIN (webrtc)

	Params protocol.Params
	Faults faults.Config
	Debug  bool
}

// Default returns a configuration with the reference protocol tunables, no
// fault injection and a single concurrent session.
func Default() Config {
	return Config{
		Transport:   TransportUDP,
		MaxSessions: 1,
		WSAddr:      ":0",
		Params:      protocol.DefaultParams(),
	}
}

// Validate checks the fields the chosen role and transport depend on.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Params.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Faults.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Transport != TransportUDP && c.Transport != TransportWebRTC {
		errs = append(errs, fmt.Errorf("unknown transport %q (want udp or webrtc)", c.Transport))
	}

	switch c.Role {
	case RoleSender:
		if c.Transport == TransportUDP && !validPort(c.Port) {
			errs = append(errs, fmt.Errorf("listen port %d must be 1~65535", c.Port))
		}
		if c.MaxSessions < 1 {
			errs = append(errs, fmt.Errorf("max sessions must be at least 1, got %d", c.MaxSessions))
		}

	case RoleReceiver:
		if c.Transport == TransportUDP {
			if strings.TrimSpace(c.Host) == "" {
				errs = append(errs, errors.New("missing sender host"))
			}
			if !validPort(c.PeerPort) {
				errs = append(errs, fmt.Errorf("sender port %d must be 1~65535", c.PeerPort))
			}
			if c.LocalPort < 0 || c.LocalPort > 65535 {
				errs = append(errs, fmt.Errorf("local port %d must be 0~65535", c.LocalPort))
			}
		} else if c.WSURL == "" {
			errs = append(errs, errors.New("missing signaling URL"))
		}
		if c.Dest == "" {
			errs = append(errs, errors.New("missing destination path"))
		}
		if c.RemotePath == "" {
			c.RemotePath = c.Dest
		}

	default:
		errs = append(errs, fmt.Errorf("unknown role %q", c.Role))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }
