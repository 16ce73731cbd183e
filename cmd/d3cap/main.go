// Command d3cap boots the Controller and runs the interactive terminal,
// following NDPeekr's main.go wiring: flag parsing, a component-tagged
// slog.Logger, a background goroutine for capture with errors reported
// over a channel, and a Bubble Tea program (here, only for the additive
// "watch" command, not the whole session, since the REPL itself is plain
// stdin/stdout).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"d3cap/internal/config"
	"d3cap/internal/d3cap"
	"d3cap/internal/term"
	"d3cap/internal/tui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "d3cap: %v\n", err)
		fmt.Fprint(os.Stderr, config.Usage)
		return 1
	}
	if cfg.Help {
		fmt.Fprint(os.Stdout, config.Usage)
		return 0
	}

	logger := config.NewLogger(cfg)

	ctrl, err := d3cap.New(cfg.ToControllerConfig(), logger.With("component", "controller"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "d3cap: %v\n", err)
		return 1
	}
	defer ctrl.Close()

	logger.Info("d3cap started", "interface", cfg.Interface, "file", cfg.File, "websocket", cfg.WebsocketPort)

	captureErrCh := make(chan error, 1)
	go func() { captureErrCh <- ctrl.Wait() }()

	dns := term.NewDNSCache()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprintln(os.Stdout, `d3cap ready. Type "help" for commands.`)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if watchArgs, ok := parseWatch(line); ok {
				runWatch(ctrl, watchArgs)
				continue
			}
			if term.Dispatch(line, ctrl, dns, os.Stdout) {
				return
			}
		}
	}()

	select {
	case <-done:
		return 0
	case err := <-captureErrCh:
		if err != nil {
			logger.Error("capture terminated fatally", "error", err)
			return 1
		}
		logger.Info("capture source exhausted; terminal remains interactive")
		<-done
		return 0
	}
}

type watchArgs struct {
	target   tui.Target
	interval time.Duration
}

func parseWatch(line string) (watchArgs, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "watch" {
		return watchArgs{}, false
	}
	var target tui.Target
	switch fields[1] {
	case "mac":
		target = tui.TargetMac
	case "ip4":
		target = tui.TargetIP4
	case "ip6":
		target = tui.TargetIP6
	case "tap":
		target = tui.TargetTap
	default:
		return watchArgs{}, false
	}
	interval := 2 * time.Second
	if len(fields) > 2 {
		if secs, err := strconv.Atoi(fields[2]); err == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}
	return watchArgs{target: target, interval: interval}, true
}

func runWatch(ctrl *d3cap.Controller, wa watchArgs) {
	m := tui.New(ctrl, wa.target, wa.interval)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
	}
}
