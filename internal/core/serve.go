package core

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"

	"wifiecho/internal/discovery"
	"wifiecho/internal/link"
	"wifiecho/internal/server"
	"wifiecho/internal/supervisor"
	"wifiecho/util"
)

// ServeMode joins the network, then runs the echo server, the optional
// mDNS advertiser and the link supervisor side by side.  The first of
// them to fail stops the others.
type ServeMode struct {
	Driver     link.Driver
	Supervisor *supervisor.Supervisor
	Server     *server.Server
	Advertiser *discovery.Advertiser // nil disables advertising
	Logger     *util.Logger
}

// Run blocks until ctx is cancelled (returning nil) or a component
// fails for good (returning its error).  Per-connection errors never
// surface here.
func (m *ServeMode) Run(ctx context.Context) error {
	defer m.Driver.Close()

	if err := m.Supervisor.Configure(ctx); err != nil {
		return fmt.Errorf("configure link: %w", err)
	}
	if err := m.Supervisor.InitialConnect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("initial connect: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := m.Server.ListenAndServe(gctx); err != nil {
			return fmt.Errorf("echo server: %w", err)
		}
		return nil
	})

	if m.Advertiser != nil {
		g.Go(func() error {
			select {
			case <-m.Server.Ready():
			case <-gctx.Done():
				return nil
			}
			if ta, ok := m.Server.Addr().(*net.TCPAddr); ok {
				m.Advertiser.Port = ta.Port
			}
			return m.Advertiser.Run(gctx)
		})
	}

	g.Go(func() error {
		if err := m.Supervisor.StayConnected(gctx); err != nil {
			return fmt.Errorf("link supervisor: %w", err)
		}
		return nil
	})

	err := g.Wait()
	m.Logger.Verbose("serve mode stopped")
	return err
}
