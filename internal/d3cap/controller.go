// Package d3cap implements the Controller: it wires capture, the packet
// parser, the three per-family handlers, and the phys-data aggregator
// together, and optionally boots the WebSocket server and JSON UI adapter.
// It is the explicit root of the process's object graph — there is no
// global state.
package d3cap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"d3cap/internal/addr"
	"d3cap/internal/alias"
	"d3cap/internal/capture"
	"d3cap/internal/handler"
	"d3cap/internal/multicast"
	"d3cap/internal/parser"
	"d3cap/internal/phys"
	"d3cap/internal/uiadapter"
	"d3cap/internal/wsserver"
)

// Config captures the Controller's startup inputs.
type Config struct {
	Interface   string // live device name; mutually exclusive with File
	File        string // offline pcap file path; mutually exclusive with Interface
	AliasFile   string
	Promisc     bool
	Monitor     bool
	WebsocketPort int // 0 means "do not start automatically"
}

// Controller is the explicit root of the running system.
type Controller struct {
	log *slog.Logger

	mac *handler.Handler[addr.Mac]
	ip4 *handler.Handler[addr.IP4]
	ip6 *handler.Handler[addr.IP6]
	dispatcher *handler.Dispatcher
	physAgg *phys.Aggregator

	aliases alias.Map

	src *capture.Source

	jsonBus *multicast.Bus[string]
	ws      *wsserver.Server
	wsMu    sync.Mutex
	wsStarted bool

	stopForwarders []func()

	captureErrCh chan error
}

// New constructs and boots the Controller: it loads the alias map, wires up
// the per-family handlers and phys aggregator, opens the capture session,
// and starts the capture goroutine. The WebSocket server and JSON UI
// adapter only start automatically when cfg.WebsocketPort is non-zero;
// otherwise call StartWebSocket later.
func New(cfg Config, log *slog.Logger) (*Controller, error) {
	if (cfg.Interface == "") == (cfg.File == "") {
		return nil, errors.New("d3cap: exactly one of Interface or File must be set")
	}

	c := &Controller{
		log:          log,
		aliases:      alias.Load(cfg.AliasFile),
		captureErrCh: make(chan error, 1),
	}

	c.mac = handler.New[addr.Mac](handler.FamilyMac, 4096, log)
	c.ip4 = handler.New[addr.IP4](handler.FamilyIP4, 4096, log)
	c.ip6 = handler.New[addr.IP6](handler.FamilyIP6, 4096, log)
	c.dispatcher = handler.NewDispatcher(c.mac, c.ip4, c.ip6, 4096, log)
	c.physAgg = phys.New(4096)

	var src *capture.Source
	var err error
	if cfg.Interface != "" {
		src, err = capture.OpenLive(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("d3cap: %w", err)
		}
		if err := src.SetSnapLen(65536); err != nil {
			return nil, fmt.Errorf("d3cap: %w", err)
		}
		if err := src.SetPromisc(cfg.Promisc); err != nil {
			return nil, fmt.Errorf("d3cap: %w", err)
		}
		if err := src.SetTimeout(timeoutDefault); err != nil {
			return nil, fmt.Errorf("d3cap: %w", err)
		}
		if err := src.SetMonitor(cfg.Monitor); err != nil {
			return nil, fmt.Errorf("d3cap: %w", err)
		}
		if err := src.Activate(); err != nil {
			return nil, fmt.Errorf("d3cap: %w", err)
		}
	} else {
		src, err = capture.OpenOffline(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("d3cap: %w", err)
		}
	}
	c.src = src

	dl, err := src.Datalink()
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("d3cap: %w", err)
	}

	go c.runCapture(dl)

	if cfg.WebsocketPort != 0 {
		if err := c.StartWebSocket(cfg.WebsocketPort); err != nil {
			return nil, err
		}
	}

	return c, nil
}

const timeoutDefault = 1_000_000_000 // 1 second, in time.Duration units (ns)

func (c *Controller) runCapture(dl capture.Datalink) {
	log := c.log.With("component", "packet_capture")
	for {
		err := c.src.Next(func(pkt capture.Packet) {
			switch dl {
			case capture.DatalinkEthernet:
				parser.ParseEthernet(pkt.Data, pkt.WireLen, pkt.Timestamp, c.dispatcher.Submit)
			case capture.DatalinkRadiotap:
				parser.ParseRadiotap(pkt.Data, pkt.Timestamp, c.dispatcher.Submit, c.physAgg.Submit)
			}
		})
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			log.Info("capture source exhausted, stopping")
			c.captureErrCh <- nil
			return
		}
		log.Error("capture read failed, fatal", "error", err)
		c.captureErrCh <- err
		return
	}
}

// Wait blocks until the capture goroutine exits (live read failure or, for
// file replay, clean EOF), returning any fatal error.
func (c *Controller) Wait() error {
	return <-c.captureErrCh
}

// StartWebSocket starts the WebSocket server and JSON UI adapter on port.
// Idempotent: a second call returns ErrWebSocketAlreadyStarted rather than
// opening a second listener.
var ErrWebSocketAlreadyStarted = errors.New("d3cap: websocket server already started")

func (c *Controller) StartWebSocket(port int) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.wsStarted {
		return ErrWebSocketAlreadyStarted
	}

	c.jsonBus = multicast.New[string](256)
	welcome, err := uiadapter.EncodeWelcome(c.aliases)
	if err != nil {
		return fmt.Errorf("d3cap: encode welcome message: %w", err)
	}

	stopMac, err := uiadapter.Forward(c.mac.Bus(), c.jsonBus, func(a addr.Mac) string { return a.String() }, c.log)
	if err != nil {
		return err
	}
	stopIP4, err := uiadapter.Forward(c.ip4.Bus(), c.jsonBus, func(a addr.IP4) string { return a.String() }, c.log)
	if err != nil {
		return err
	}
	stopIP6, err := uiadapter.Forward(c.ip6.Bus(), c.jsonBus, func(a addr.IP6) string { return a.String() }, c.log)
	if err != nil {
		return err
	}
	c.stopForwarders = []func(){stopMac, stopIP4, stopIP6}

	srv, err := wsserver.Listen(port, c.jsonBus, welcome, c.log)
	if err != nil {
		return fmt.Errorf("d3cap: %w", err)
	}
	c.ws = srv
	go func() {
		if err := srv.Serve(); err != nil {
			c.log.Debug("websocket server stopped", "error", err)
		}
	}()

	c.wsStarted = true
	return nil
}

// MacGraph, IP4Graph, IP6Graph expose the per-family graphs for read-only
// query access (the terminal's "ls" commands).
func (c *Controller) MacGraph() *handler.Handler[addr.Mac] { return c.mac }
func (c *Controller) IP4Graph() *handler.Handler[addr.IP4] { return c.ip4 }
func (c *Controller) IP6Graph() *handler.Handler[addr.IP6] { return c.ip6 }

// PhysAggregator exposes the phys-data aggregator for "ls tap" queries.
func (c *Controller) PhysAggregator() *phys.Aggregator { return c.physAgg }

// Aliases exposes the read-only MAC alias map.
func (c *Controller) Aliases() alias.Map { return c.aliases }

// Close tears down the capture session and WebSocket server, if running.
func (c *Controller) Close() {
	c.src.Close()
	c.dispatcher.Close()
	c.mac.Close()
	c.ip4.Close()
	c.ip6.Close()
	c.physAgg.Close()

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws != nil {
		c.ws.Close()
	}
	for _, stop := range c.stopForwarders {
		stop()
	}
	if c.jsonBus != nil {
		c.jsonBus.Close()
	}
}
