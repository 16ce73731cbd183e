// Package config parses the CLI flags and boots the logger for cmd/d3cap,
// the way NDPeekr's main.go parses -listen/-iface/-log-level with the
// standard library flag package rather than a CLI framework.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"d3cap/internal/d3cap"
)

// Config is the fully parsed command line, ready to build a d3cap.Config
// and a logger from.
type Config struct {
	Interface     string
	File          string
	ConfPath      string
	Promisc       bool
	Monitor       bool
	WebsocketPort int // 0 means "not requested at startup"
	LogLevel      string

	Help bool
}

// ErrArgument reports a bad combination of flags: fatal at startup, exit
// code non-zero.
type ErrArgument struct{ msg string }

func (e *ErrArgument) Error() string { return e.msg }

// Parse parses args (normally os.Args[1:]) into a Config. The -websocket
// flag optionally takes a port; absent means "not requested", present with
// no value means the default port 7432.
func Parse(args []string) (Config, error) {
	rest, wsPort, wsErr := extractWebsocketFlag(args)
	if wsErr != nil {
		return Config{}, wsErr
	}

	fs := flag.NewFlagSet("d3cap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cfg Config
	fs.StringVar(&cfg.Interface, "interface", "", "capture live from this network interface")
	fs.StringVar(&cfg.Interface, "i", "", "shorthand for -interface")
	fs.StringVar(&cfg.File, "file", "", "replay this pcap file instead of live capture")
	fs.StringVar(&cfg.File, "f", "", "shorthand for -file")
	fs.StringVar(&cfg.ConfPath, "conf", "", "TOML config file with a known-macs table")
	fs.StringVar(&cfg.ConfPath, "c", "", "shorthand for -conf")
	fs.BoolVar(&cfg.Promisc, "promisc", false, "enable promiscuous mode")
	fs.BoolVar(&cfg.Promisc, "P", false, "shorthand for -promisc")
	fs.BoolVar(&cfg.Monitor, "monitor", false, "enable 802.11 monitor (rfmon) mode")
	fs.BoolVar(&cfg.Monitor, "M", false, "shorthand for -monitor")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Help, "help", false, "show usage and exit")
	fs.BoolVar(&cfg.Help, "h", false, "shorthand for -help")

	if err := fs.Parse(rest); err != nil {
		return Config{}, &ErrArgument{msg: err.Error()}
	}

	cfg.WebsocketPort = wsPort

	if cfg.Help {
		return cfg, nil
	}

	if (cfg.Interface == "") == (cfg.File == "") {
		return Config{}, &ErrArgument{msg: "exactly one of -interface or -file is required"}
	}

	return cfg, nil
}

// extractWebsocketFlag pulls "-websocket"/"--websocket" (with an optional
// attached or following numeric value) out of args before flag.Parse sees
// them. The standard flag package has no notion of an optionally-valued
// flag, so -websocket with no argument would otherwise swallow the next
// token as its value.
func extractWebsocketFlag(args []string) (rest []string, port int, err error) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-websocket" || a == "--websocket":
			if i+1 < len(args) && isPort(args[i+1]) {
				p, _ := parsePort(args[i+1])
				port = p
				i++
			} else {
				port = 7432
			}
		case strings.HasPrefix(a, "-websocket=") || strings.HasPrefix(a, "--websocket="):
			val := a[strings.IndexByte(a, '=')+1:]
			p, perr := parsePort(val)
			if perr != nil {
				return nil, 0, &ErrArgument{msg: fmt.Sprintf("bad -websocket port: %v", perr)}
			}
			port = p
		default:
			rest = append(rest, a)
		}
	}
	return rest, port, nil
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parsePort(s string) (int, error) {
	var port int
	_, err := fmt.Sscanf(s, "%d", &port)
	if err != nil {
		return 0, err
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port out of range: %d", port)
	}
	return port, nil
}

// ToControllerConfig builds the d3cap.Config this CLI configuration
// describes.
func (c Config) ToControllerConfig() d3cap.Config {
	return d3cap.Config{
		Interface:     c.Interface,
		File:          c.File,
		AliasFile:     c.ConfPath,
		Promisc:       c.Promisc,
		Monitor:       c.Monitor,
		WebsocketPort: c.WebsocketPort,
	}
}

// NewLogger builds the process-wide slog.Logger, text-formatted to stderr,
// at the level named by c.LogLevel, exactly as NDPeekr's parseLogLevel does.
func NewLogger(c Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}))
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const Usage = `d3cap: live network traffic observer

Usage:
  d3cap -interface <name> [-promisc] [-monitor] [-conf <path>] [-websocket [port]]
  d3cap -file <path> [-conf <path>] [-websocket [port]]

Flags:
  -i, -interface <name>   capture live from this network interface
  -f, -file <path>        replay this pcap file instead of live capture
  -c, -conf <path>        TOML config file with a known-macs table
  -P, -promisc            enable promiscuous mode
  -M, -monitor            enable 802.11 monitor (rfmon) mode
  -websocket [port]       start the websocket server (default 7432)
  -log-level <level>      debug, info, warn, error (default info)
  -h, -help               show this message
`
