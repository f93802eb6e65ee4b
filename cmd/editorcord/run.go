package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	editorcord "tools.zach/dev/editorcord"
	"tools.zach/dev/editorcord/internal/assets"
	"tools.zach/dev/editorcord/internal/atomicfile"
	"tools.zach/dev/editorcord/internal/config"
	"tools.zach/dev/editorcord/internal/discord"
	"tools.zach/dev/editorcord/internal/host"
	"tools.zach/dev/editorcord/internal/logger"
	"tools.zach/dev/editorcord/internal/paths"
	"tools.zach/dev/editorcord/internal/peer"
	"tools.zach/dev/editorcord/internal/presence"
)

func newRunCmd() *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the presence daemon",
		Long: `Run the presence daemon until interrupted.

The daemon watches host.json and publishes its contents to the local Discord
client. Send SIGHUP to reload config.toml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := dataDir(cmd)
			if err != nil {
				return err
			}
			var mirror io.Writer
			if foreground {
				mirror = cmd.ErrOrStderr()
			}
			return runDaemon(cmd.Context(), dir, mirror)
		},
	}
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "also log to stderr")
	return cmd
}

// runDaemon owns the process: PID lock, logging, and the event loop.
func runDaemon(ctx context.Context, dir paths.DataDir, mirror io.Writer) error {
	if err := dir.Ensure(); err != nil {
		return err
	}
	pid, err := acquirePID(dir.PID())
	if err != nil {
		return err
	}
	defer pid.Release()

	if _, err := os.Stat(dir.Config()); errors.Is(err, os.ErrNotExist) {
		if wErr := atomicfile.Write(dir.Config(), editorcord.DefaultConfigTOML, 0o644); wErr != nil {
			fmt.Fprintf(os.Stderr, "warning: writing default config: %v\n", wErr)
		}
	}
	cfg, err := config.Load(dir.Root)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Log.Level))
	log, closer := logger.New(logger.Options{
		Path:      dir.Log(),
		Level:     level,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Mirror:    mirror,
	})
	defer closer.Close()
	slog.SetDefault(log)
	log.Info("editorcord starting", "version", resolveVersion(), "data_dir", dir.Root, "pid", os.Getpid())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Assets.Validate {
		go checkAssets(ctx, dir, cfg, log)
	}

	watcher, err := host.NewWatcher(dir.HostState())
	if err != nil {
		logger.Fail(log, "watching host state", "error", err)
		return err
	}
	defer watcher.Close()
	if watcher.Polling() {
		log.Info("fsnotify unavailable, polling host state")
	}

	d := newDaemon(dir, cfg, log, level)
	d.loop(ctx, watcher.Events())
	return nil
}

// checkAssets warns about image keys missing from the Discord application.
func checkAssets(ctx context.Context, dir paths.DataDir, cfg *config.Config, log *slog.Logger) {
	c := assets.NewChecker(dir.AssetsCache(), time.Duration(cfg.Assets.CacheHours)*time.Hour)
	a := cfg.Display.Assets
	c.Validate(ctx, cfg.Discord.AppID, []string{a.LargeImage, a.PlayImage, a.EditImage}, log)
}

// ///////////////////////////////////////////////
// Daemon
// ///////////////////////////////////////////////

// hostSink is the part of [presence.Scheduler] fed from host.json.
type hostSink interface {
	NotifyContextChanged(label string)
	NotifyModeChanged(active bool)
	NotifyHostInfo(product, engineVersion string, sessionStart int64)
	Reset()
}

// daemon holds the state of the run loop. All methods run on the loop's
// goroutine.
type daemon struct {
	dir   paths.DataDir
	cfg   *config.Config
	log   *slog.Logger
	level *slog.LevelVar
	sched *presence.Scheduler
	sink  hostSink
	last  *host.State
}

func newDaemon(dir paths.DataDir, cfg *config.Config, log *slog.Logger, level *slog.LevelVar) *daemon {
	d := &daemon{dir: dir, cfg: cfg, log: log, level: level}
	d.sched = newScheduler(cfg, log)
	d.sink = d.sched
	return d
}

func newScheduler(cfg *config.Config, log *slog.Logger) *presence.Scheduler {
	transport := presence.IPC{
		HandshakeTimeout: cfg.Discord.HandshakeTimeout(),
		WriteTimeout:     cfg.Discord.WriteTimeout(),
	}
	s := presence.NewScheduler(schedulerConfig(cfg), transport, peer.NewLocator(log, cfg.Discord.PeerNames...),
		presence.WithLogger(log))
	s.Publisher().OnPublished(func(st presence.Status, err error) {
		if err == nil {
			log.Debug("presence published", "state", st.State, "details", st.Details, "active", st.Active)
		}
	})
	return s
}

func schedulerConfig(cfg *config.Config) presence.Config {
	b := cfg.Behavior
	return presence.Config{
		AppID:             cfg.Discord.AppID,
		StartupDelay:      b.StartupDelay(),
		PublishInterval:   b.PublishInterval(),
		ReconnectInterval: b.ReconnectInterval(),
		PeerCheckInterval: b.PeerCheck(),
		ThrottleBackoff:   b.ThrottleBackoff(),
		Builder:           statusBuilder(cfg),
	}
}

func statusBuilder(cfg *config.Config) presence.StatusBuilder {
	d := cfg.Display
	b := presence.StatusBuilder{
		State:         d.State,
		Details:       d.Details,
		LargeImage:    d.Assets.LargeImage,
		LargeText:     d.Assets.LargeText,
		ActiveImage:   d.Assets.PlayImage,
		ActiveText:    d.Assets.PlayText,
		IdleImage:     d.Assets.EditImage,
		IdleText:      d.Assets.EditText,
		TimestampMode: d.Timestamps.Mode,
		Redact:        cfg.ContextLabel,
	}
	for _, btn := range d.Buttons {
		b.Buttons = append(b.Buttons, discord.Button{Label: btn.Label, URL: btn.URL})
	}
	return b
}

// loop serializes ticks, host file changes and signals until ctx ends or a
// stop signal arrives.
func (d *daemon) loop(ctx context.Context, changes <-chan struct{}) {
	stop, reload := signals()
	ticker := time.NewTicker(d.cfg.Behavior.Tick())
	defer ticker.Stop()

	d.sched.Start()
	d.syncHost()

	for {
		select {
		case <-ctx.Done():
			d.sched.Shutdown()
			return
		case sig := <-stop:
			d.log.Info("received shutdown signal", "signal", sig.String())
			d.sched.Shutdown()
			return
		case <-reload:
			d.reload()
			ticker.Reset(d.cfg.Behavior.Tick())
		case <-changes:
			d.syncHost()
		case <-ticker.C:
			d.sched.Tick()
		}
	}
}

// syncHost reads host.json and forwards whatever changed since the last
// read. A new host session restarts the connection so the elapsed timer
// and card start fresh.
func (d *daemon) syncHost() {
	next, err := host.Read(d.dir.HostState())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.log.Warn("reading host state", "error", err)
		}
		return
	}
	prev := d.last
	d.last = next

	if prev != nil && next.SessionStart != 0 && prev.SessionStart != next.SessionStart {
		d.log.Info("host session restarted", "session_start", next.SessionStart)
		d.sink.Reset()
	}

	change := host.Diff(prev, next)
	if change.Info {
		d.sink.NotifyHostInfo(next.Product, next.EngineVersion, next.SessionStart)
	}
	if change.Context {
		d.sink.NotifyContextChanged(next.Context)
	}
	if change.Mode {
		d.sink.NotifyModeChanged(next.Active)
	}
	if change.Any() {
		d.log.Debug("host state changed", "context", change.Context, "mode", change.Mode, "info", change.Info)
	}
}

// reload re-reads config.toml and swaps in a scheduler built from it. The
// old connection is closed; host state is replayed into the new scheduler.
// An invalid config keeps the running one.
func (d *daemon) reload() {
	cfg, err := config.Load(d.dir.Root)
	if err != nil {
		d.log.Error("config reload failed, keeping current config", "error", err)
		return
	}
	d.cfg = cfg
	d.level.Set(logger.ParseLevel(cfg.Log.Level))

	d.sched.Shutdown()
	d.sched = newScheduler(cfg, d.log)
	d.sink = d.sched
	d.sched.Start()
	d.last = nil
	d.syncHost()
	d.log.Info("config reloaded")
}
