// Tondrag listens for the VRChat avatar parameter
// /avatar/parameters/ton_suicide over OSC and, when it turns true, holds the
// configured window's title bar with the mouse for the configured time.
//
// Commands on stdin: Enter (or "toggle") starts/stops the listener,
// "status" prints the current state, "history" repeats recent status
// lines, "log <category> <level>" changes one category's log level, "q"
// quits.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"tondrag/configstore"
	"tondrag/dragmanager"
	"tondrag/logging"
	"tondrag/oscmanager"
	"tondrag/util"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	host       string
	port       uint16
	window     string
	dragTimeMs int64
	dragTime   time.Duration
	autoStart  bool
	logLevel   string
	logFormat  string
	logLevels  map[string]string
	noColor    bool
	noWatch    bool
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	var opts options
	flags := pflag.NewFlagSet("tondrag", pflag.ContinueOnError)
	flags.StringVar(&opts.configPath, "config", "config.conf", "path to the key=value config file")
	flags.StringVar(&opts.host, "host", "", "address to bind (default all interfaces)")
	flags.Uint16Var(&opts.port, "port", configstore.DefaultPort, "UDP port to listen for OSC on")
	flags.StringVar(&opts.window, "window", configstore.DefaultWindowName, "title of the window to drag")
	flags.Int64Var(&opts.dragTimeMs, "drag-time", configstore.DefaultDragTime.Milliseconds(), "how long to hold the window, in milliseconds")
	flags.BoolVar(&opts.autoStart, "auto-start", false, "start listening immediately")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	flags.StringToStringVar(&opts.logLevels, "log-category", nil, "per-category log level, e.g. osc_in=debug")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored log output")
	flags.BoolVar(&opts.noWatch, "no-watch", false, "do not reload the config file when it changes")
	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}
	d, err := util.DragTimeFromMs(opts.dragTimeMs)
	if err != nil {
		return nil, nil, fmt.Errorf("--drag-time %w", err)
	}
	opts.dragTime = d
	return &opts, flags, nil
}

// applyFlags copies explicitly given flags over the file values. They stay
// in force when the file is reloaded.
func applyFlags(store *configstore.Store, opts *options, flags *pflag.FlagSet) {
	store.SetOverrides(func(c *configstore.Config) {
		if flags.Changed("port") {
			c.Port = opts.port
		}
		if flags.Changed("window") {
			c.WindowName = opts.window
		}
		if flags.Changed("drag-time") {
			c.DragTime = opts.dragTime
		}
		if flags.Changed("auto-start") {
			c.AutoStart = opts.autoStart
		}
	})
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	opts, flags, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	if err := logging.Setup(logging.Options{
		Format:  logging.Format(opts.logFormat),
		Level:   level,
		NoColor: opts.noColor,
	}); err != nil {
		return err
	}
	for name, level := range opts.logLevels {
		if err := setCategoryLevel(name, level); err != nil {
			return fmt.Errorf("--log-category: %w", err)
		}
	}
	logger := logging.Get(logging.APP)

	store := configstore.New(opts.configPath, logging.Get(logging.CONFIG))
	if err := store.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(store, opts, flags)

	console := newConsole(stdout, 100)
	defer console.Close()

	a, err := newApp(store, console, opts.host)
	if err != nil {
		return err
	}
	defer a.shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.noWatch {
		go func() {
			if err := store.Watch(ctx); err != nil {
				logger.Warn("config watch disabled", "error", err)
			}
		}()
	}

	cfg := store.Get()
	logger.Info("ready",
		"config", store.Path(),
		"port", cfg.Port,
		"window", cfg.WindowName,
		"drag_time", cfg.DragTime)
	console.Println("Enter toggles the listener, \"q\" quits.")
	if cfg.AutoStart {
		a.toggle()
	} else {
		console.OnStatus("Status: Stopped", oscmanager.Info)
	}

	commands := readCommands(stdin)
	for {
		select {
		case <-ctx.Done():
			logger.Info("received shutdown signal")
			return nil
		case cmd, ok := <-commands:
			if !ok {
				// No terminal attached; keep serving until a signal arrives.
				commands = nil
				continue
			}
			if quit := a.handleCommand(cmd); quit {
				return nil
			}
		}
	}
}

func setCategoryLevel(name, level string) error {
	category, ok := logging.ParseCategory(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return fmt.Errorf("unknown log category %q", name)
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	logging.SetCategoryLevel(category, lvl)
	return nil
}

func readCommands(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ch <- strings.ToLower(strings.TrimSpace(scanner.Text()))
		}
	}()
	return ch
}

// app ties the listener to the config store and console, the way the
// original form's Start/Stop button did.
type app struct {
	store      *configstore.Store
	console    *Console
	listener   *oscmanager.OSCManager
	dispatcher *oscmanager.Dispatcher
	logger     *slog.Logger
}

func newApp(store *configstore.Store, console *Console, host string) (*app, error) {
	dispatcher, err := oscmanager.NewDispatcher(oscmanager.DispatcherConfig{
		Action: dragmanager.New(logging.Get(logging.ACTION)),
		Config: oscmanager.ConfigFunc(func() oscmanager.TriggerConfig {
			cfg := store.Get()
			return oscmanager.TriggerConfig{WindowName: cfg.WindowName, DragDuration: cfg.DragTime}
		}),
		Status:   console,
		Logger:   logging.Get(logging.OSC_IN),
		Describe: dragmanager.Describe,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		store:   store,
		console: console,
		listener: oscmanager.New(oscmanager.Config{
			Host:    host,
			Handler: dispatcher,
			Status:  console,
			Logger:  logging.Get(logging.OSC_IN),
		}),
		dispatcher: dispatcher,
		logger:     logging.Get(logging.APP),
	}, nil
}

func (a *app) handleCommand(cmd string) (quit bool) {
	if args, ok := strings.CutPrefix(cmd, "log "); ok {
		a.setLogLevel(strings.Fields(args))
		return false
	}

	switch cmd {
	case "", "toggle", "start", "stop":
		a.toggle()
	case "status":
		cfg := a.store.Get()
		a.console.Println(fmt.Sprintf("listener %s, port %d, window %q, drag %s",
			a.listener.State(), cfg.Port, cfg.WindowName, cfg.DragTime))
	case "history":
		a.console.History()
	case "q", "quit", "exit":
		return true
	default:
		a.console.Println(fmt.Sprintf("unknown command %q", cmd))
	}
	return false
}

func (a *app) setLogLevel(args []string) {
	if len(args) != 2 {
		a.console.Println("usage: log <category> <level>")
		return
	}
	if err := setCategoryLevel(args[0], args[1]); err != nil {
		a.console.Println(err.Error())
		return
	}
	a.logger.Info("log level changed", "log_category", args[0], "level", args[1])
	a.console.Println(fmt.Sprintf("%s logging at %s", args[0], args[1]))
}

// toggle starts the listener when stopped and stops it when running. The
// configuration is saved on every start.
func (a *app) toggle() {
	if a.listener.IsRunning() {
		a.listener.Stop()
		return
	}

	if err := a.store.Save(); err != nil {
		a.logger.Error("save config", "error", err)
		a.console.OnStatus("Error: "+err.Error(), oscmanager.Error)
		return
	}
	if err := a.listener.Start(a.store.Get().Port); err != nil {
		// Bind failures are already on the console.
		a.logger.Debug("start listener", "error", err)
	}
}

func (a *app) shutdown() {
	a.listener.Stop()
	a.dispatcher.Close()
	a.listener.Wait()
}
