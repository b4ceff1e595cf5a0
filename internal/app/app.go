// Package app wires configuration, transport, fault injection and the
// protocol engines together for each role.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/1ureka/rdt/internal/config"
	"github.com/1ureka/rdt/internal/faults"
	"github.com/1ureka/rdt/internal/receiver"
	"github.com/1ureka/rdt/internal/sender"
	"github.com/1ureka/rdt/internal/signaling"
	"github.com/1ureka/rdt/internal/storage"
	"github.com/1ureka/rdt/internal/transport"
	"github.com/1ureka/rdt/internal/util"
)

// RunSender opens the configured transport and serves requests until ctx
// is cancelled. With the WebRTC transport it also returns once the peer
// closes the DataChannel.
func RunSender(ctx context.Context, cfg config.Config) error {
	var conn net.PacketConn
	switch cfg.Transport {
	case config.TransportWebRTC:
		dc, err := signaling.EstablishAsHost(ctx, cfg.WSAddr)
		if err != nil {
			return fmt.Errorf("failed to establish DataChannel: %w", err)
		}
		conn = dc
	default:
		udp, err := transport.ListenUDP(cfg.Port)
		if err != nil {
			return err
		}
		conn = udp
	}
	defer conn.Close()

	return Serve(ctx, conn, cfg)
}

// Serve answers requests arriving on conn.
func Serve(ctx context.Context, conn net.PacketConn, cfg config.Config) error {
	src, err := storage.NewSource(cfg.Root)
	if err != nil {
		return err
	}

	statsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	util.StartStatsReporter(statsCtx)

	srv := sender.NewServer(faults.Wrap(conn, cfg.Faults), src, sender.Options{
		Params:      cfg.Params,
		MaxSessions: cfg.MaxSessions,
	})

	err = srv.Serve(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		util.LogInfo("shutting down: %s", util.Stats.Summary())
		return nil
	case errors.Is(err, net.ErrClosed):
		util.LogInfo("transport closed: %s", util.Stats.Summary())
		return nil
	}
	return err
}

// RunReceiver opens the configured transport, fetches the configured
// object and writes it to the destination path.
func RunReceiver(ctx context.Context, cfg config.Config) error {
	var (
		conn net.PacketConn
		peer net.Addr
	)
	switch cfg.Transport {
	case config.TransportWebRTC:
		dc, err := signaling.EstablishAsClient(ctx, cfg.WSURL)
		if err != nil {
			return fmt.Errorf("failed to establish DataChannel: %w", err)
		}
		conn, peer = dc, dc.PeerAddr()
	default:
		addr, err := transport.ResolvePeer(cfg.Host, cfg.PeerPort)
		if err != nil {
			return err
		}
		udp, err := transport.ListenUDP(cfg.LocalPort)
		if err != nil {
			return err
		}
		conn, peer = udp, addr
	}
	defer conn.Close()

	return Fetch(ctx, conn, peer, cfg)
}

// Fetch requests cfg.RemotePath from peer over conn and persists it to
// cfg.Dest.
func Fetch(ctx context.Context, conn net.PacketConn, peer net.Addr, cfg config.Config) error {
	statsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	util.StartStatsReporter(statsCtx)

	path := cfg.RemotePath
	if path == "" {
		path = cfg.Dest
	}

	rcv := receiver.New(faults.Wrap(conn, cfg.Faults), peer, path, storage.File(cfg.Dest), cfg.Params)
	if err := rcv.Fetch(ctx); err != nil {
		return err
	}
	util.LogInfo("saved %s: %s", cfg.Dest, util.Stats.Summary())
	return nil
}
