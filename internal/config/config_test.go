package config

import (
	"errors"
	"testing"

	"github.com/1ureka/rdt/internal/faults"
)

func TestValidate(t *testing.T) {
	sender := func(mut func(*Config)) Config {
		c := Default()
		c.Role = RoleSender
		c.Port = 9000
		if mut != nil {
			mut(&c)
		}
		return c
	}
	receiver := func(mut func(*Config)) Config {
		c := Default()
		c.Role = RoleReceiver
		c.Host = "localhost"
		c.PeerPort = 9000
		c.Dest = "out.bin"
		if mut != nil {
			mut(&c)
		}
		return c
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sender defaults", sender(nil), false},
		{"sender missing port", sender(func(c *Config) { c.Port = 0 }), true},
		{"sender port out of range", sender(func(c *Config) { c.Port = 70000 }), true},
		{"sender webrtc needs no port", sender(func(c *Config) { c.Port = 0; c.Transport = TransportWebRTC }), false},
		{"sender zero sessions", sender(func(c *Config) { c.MaxSessions = 0 }), true},
		{"receiver defaults", receiver(nil), false},
		{"receiver missing host", receiver(func(c *Config) { c.Host = " " }), true},
		{"receiver missing dest", receiver(func(c *Config) { c.Dest = "" }), true},
		{"receiver bad local port", receiver(func(c *Config) { c.LocalPort = -1 }), true},
		{"receiver webrtc needs URL", receiver(func(c *Config) { c.Transport = TransportWebRTC }), true},
		{"receiver webrtc", receiver(func(c *Config) { c.Transport = TransportWebRTC; c.WSURL = "ws://h/ws?pin=1" }), false},
		{"unknown transport", sender(func(c *Config) { c.Transport = "tcp" }), true},
		{"unknown role", Config{Transport: TransportUDP, Params: Default().Params}, true},
		{"bad params", sender(func(c *Config) { c.Params.WindowSize = 0 }), true},
		{"bad faults", sender(func(c *Config) { c.Faults = faults.Config{LossProb: 2} }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestValidateDefaultsRemotePath(t *testing.T) {
	c := Default()
	c.Role = RoleReceiver
	c.Host = "localhost"
	c.PeerPort = 9000
	c.Dest = "notes.txt"
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.RemotePath != "notes.txt" {
		t.Errorf("RemotePath = %q, want the destination path", c.RemotePath)
	}
}
