// Package main is the fukura CLI: init/store/search/resolve/pack against
// the repository facade, daemon lifecycle management, HTTP serve, sync
// job scheduling, static HTML export, and the interactive TUI browser.
// One top-level struct of kong subcommand structs, parsed and dispatched
// from main.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	daemonize "github.com/sevlyar/go-daemon"

	"github.com/fukura-dev/fukura/internal/browseropen"
	"github.com/fukura-dev/fukura/internal/config"
	"github.com/fukura-dev/fukura/internal/cron"
	"github.com/fukura-dev/fukura/internal/daemon"
	"github.com/fukura-dev/fukura/internal/htmlexport"
	"github.com/fukura-dev/fukura/internal/httpapi"
	. "github.com/fukura-dev/fukura/internal/logging"
	"github.com/fukura-dev/fukura/internal/note"
	"github.com/fukura-dev/fukura/internal/repo"
	"github.com/fukura-dev/fukura/internal/supervisor"
	"github.com/fukura-dev/fukura/internal/sync"
	"github.com/fukura-dev/fukura/internal/timeparse"
	"github.com/fukura-dev/fukura/internal/tui"
)

// version is set by goreleaser via ldflags: -X main.version=...
var version = "dev"

// Context is passed to every command's Run method.
type Context struct {
	Debug  bool
	Trace  bool
	Config string
}

// openRepo discovers the repository rooted at or above the current
// directory, applying the local config's redaction overrides.
func openRepo() (*repo.Repository, string, error) {
	root, err := discoverRoot()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", err
	}
	r, err := repo.Open(root, cfg.RedactionOverrides)
	if err != nil {
		return nil, "", err
	}
	return r, root, nil
}

func discoverRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	r, err := repo.Discover(wd, nil)
	if err != nil {
		return "", err
	}
	root := r.Root()
	r.Close()
	return filepath.Dir(root), nil
}

// CLI defines the command-line interface.
type CLI struct {
	Debug  bool   `help:"Enable debug logging" short:"d"`
	Trace  bool   `help:"Enable trace logging" short:"t"`
	Config string `help:"Config file path" short:"c" type:"path"`

	Init    InitCmd    `cmd:"" help:"Initialize a fukura repository in the current directory"`
	Store   StoreCmd   `cmd:"" help:"Store a note"`
	Search  SearchCmd  `cmd:"" help:"Search stored notes"`
	Show    ShowCmd    `cmd:"" help:"Show a single note"`
	Resolve ResolveCmd `cmd:"" help:"Resolve a partial id/ref to a full object id"`
	Pack    PackCmd    `cmd:"" help:"Pack loose objects into a pack file"`
	Tags    TagsCmd    `cmd:"" help:"List tags used across the repository"`

	Daemon DaemonCmd `cmd:"" help:"Manage the background capture daemon"`
	Serve  ServeCmd  `cmd:"" help:"Serve the HTTP sync/metrics/tail API"`
	Sync   SyncCmd   `cmd:"" help:"Push, pull, and schedule sync jobs"`
	Export ExportCmd `cmd:"" help:"Export the repository to static HTML"`
	TUI    TUICmd    `cmd:"" help:"Open the interactive note browser"`
	Cfg    ConfigCmd `cmd:"config" help:"View or locate configuration"`

	Version VersionCmd `cmd:"" help:"Show version"`
}

// InitCmd creates a new repository.
type InitCmd struct {
	Force bool `help:"Reinitialize even if a .fukura directory already exists"`
}

func (c *InitCmd) Run(ctx *Context) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	r, err := repo.Init(wd, c.Force, nil)
	if err != nil {
		return err
	}
	defer r.Close()
	fmt.Printf("Initialized fukura repository in %s\n", r.Root())
	return nil
}

// StoreCmd stores a note read from flags.
type StoreCmd struct {
	Title   string   `arg:"" help:"Note title"`
	Body    string   `help:"Note body" short:"b"`
	Tags    []string `help:"Tags" short:"T"`
	Links   []string `help:"Related links"`
	Privacy string   `help:"Visibility: private, org, public" default:"private" enum:"private,org,public"`
	Author  string   `help:"Author name" default:"${env_user}"`
}

func (c *StoreCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	rec, err := r.StoreNote(note.Note{
		Title:   c.Title,
		Body:    c.Body,
		Tags:    c.Tags,
		Links:   c.Links,
		Privacy: note.Privacy(c.Privacy),
		Author:  note.Author{Name: c.Author},
	})
	if err != nil {
		return err
	}
	fmt.Println(rec.ObjectID)
	return nil
}

// SearchCmd runs a keyword search.
type SearchCmd struct {
	Query string `arg:"" optional:"" help:"Search query (empty lists most recently updated notes)"`
	Limit int    `help:"Maximum results" default:"20"`
	Sort  string `help:"Sort order: relevance, updated, likes" default:"relevance" enum:"relevance,updated,likes"`
	Since string `help:"Only show notes updated after this relative time (e.g. 2h, 3d)"`
}

func (c *SearchCmd) Run(ctx *Context) error {
	r, root, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	hits, err := r.Search(c.Query, c.Limit, c.Sort)
	if err != nil {
		return err
	}

	if c.Since != "" {
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		cutoff, err := timeparse.ParseAgo(c.Since, time.Now())
		if err != nil {
			return err
		}
		if err := timeparse.Validate(cutoff, time.Now(), cfg.Recording.MaxLookbackHours, cfg.Recording.MinLookbackMinutes); err != nil {
			return err
		}
		filtered := hits[:0]
		for _, h := range hits {
			if h.UpdatedAt.After(cutoff) {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	if len(hits) == 0 {
		fmt.Println("No notes found.")
		return nil
	}
	for _, h := range hits {
		fmt.Printf("%s  %-40s %s\n", h.ObjectID[:12], h.Title, strings.Join(h.Tags, ","))
	}
	return nil
}

// ShowCmd prints a single note in full.
type ShowCmd struct {
	ID string `arg:"" help:"Object id, prefix, or position (e.g. @1)"`
}

func (c *ShowCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	id, err := r.ResolveObjectID(c.ID)
	if err != nil {
		return err
	}
	rec, err := r.LoadNote(id)
	if err != nil {
		return err
	}

	fmt.Printf("id:       %s\n", rec.ObjectID)
	fmt.Printf("title:    %s\n", rec.Note.Title)
	fmt.Printf("tags:     %s\n", strings.Join(rec.Note.Tags, ", "))
	fmt.Printf("privacy:  %s\n", rec.Note.Privacy)
	fmt.Printf("author:   %s\n", rec.Note.Author.Name)
	fmt.Printf("updated:  %s\n\n", rec.Note.UpdatedAt.Format(time.RFC3339))
	fmt.Println(rec.Note.Body)
	for _, sol := range rec.Note.Solutions {
		fmt.Println("\nsolution:")
		for _, step := range sol.Steps {
			fmt.Printf("  - %s\n", step)
		}
	}
	return nil
}

// ResolveCmd resolves a partial id to its full form.
type ResolveCmd struct {
	ID string `arg:"" help:"Object id, prefix, or position (e.g. @1)"`
}

func (c *ResolveCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	id, err := r.ResolveObjectID(c.ID)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

// PackCmd packs loose objects into a pack file.
type PackCmd struct {
	Prune bool `help:"Remove loose objects once packed"`
}

func (c *PackCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	report, err := r.PackLooseObjects(c.Prune)
	if err != nil {
		return err
	}
	pruned := ""
	if report.Pruned {
		pruned = ", loose objects pruned"
	}
	fmt.Printf("Packed %d object(s) into %s%s\n", report.ObjectCount, report.PackPath, pruned)
	return nil
}

// TagsCmd lists every tag used in the repository.
type TagsCmd struct{}

func (c *TagsCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	tags, err := r.CollectTags()
	if err != nil {
		return err
	}
	for _, t := range tags {
		fmt.Println(t)
	}
	return nil
}

// DaemonCmd manages the background capture daemon.
type DaemonCmd struct {
	Start DaemonStartCmd `cmd:"" help:"Start the daemon in the background"`
	Stop  DaemonStopCmd  `cmd:"" help:"Stop the background daemon"`
	Status DaemonStatusCmd `cmd:"" help:"Show daemon status"`
	Run   DaemonRunCmd   `cmd:"" help:"Run the daemon in the foreground"`
}

func daemonPaths(root string) (pid, log string) {
	dataDir := filepath.Join(root, ".fukura")
	return filepath.Join(dataDir, "daemon.pid"), filepath.Join(dataDir, "daemon.log")
}

// DaemonStartCmd daemonizes the capture daemon under supervision.
type DaemonStartCmd struct{}

func (c *DaemonStartCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	dataDir := filepath.Join(root, ".fukura")
	pidFile, logFile := daemonPaths(root)

	if isRunningAt(pidFile) {
		return fmt.Errorf("daemon already running")
	}

	cntxt := &daemonize.Context{
		PidFileName: pidFile,
		PidFilePerm: 0644,
		LogFileName: logFile,
		LogFilePerm: 0640,
		WorkDir:     root,
		Umask:       027,
	}

	d, err := cntxt.Reborn()
	if err != nil {
		return fmt.Errorf("daemonize: %w", err)
	}
	if d != nil {
		L_info("daemon: started", "pid", d.Pid, "dataDir", dataDir)
		return nil
	}
	defer cntxt.Release() //nolint:errcheck

	L_info("supervisor: started", "pid", os.Getpid(), "dataDir", dataDir)
	sup := supervisor.New(dataDir)
	return sup.Run()
}

// DaemonStopCmd signals the daemon to shut down.
type DaemonStopCmd struct{}

func (c *DaemonStopCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	pidFile, _ := daemonPaths(root)

	pid, running := getPidFromFile(pidFile)
	if !running {
		L_info("daemon not running")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}

	L_info("daemon stopped", "pid", pid)
	os.Remove(pidFile)
	return nil
}

// DaemonStatusCmd reports daemon uptime and crash history.
type DaemonStatusCmd struct{}

func (c *DaemonStatusCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	dataDir := filepath.Join(root, ".fukura")
	pidFile, _ := daemonPaths(root)

	_, running := getPidFromFile(pidFile)
	if !running {
		fmt.Println("Daemon:   not running")
		return nil
	}

	state, err := supervisor.LoadState(dataDir)
	if err != nil {
		fmt.Println("Daemon:   running")
		return nil
	}

	uptime := time.Since(state.StartedAt).Round(time.Second)
	fmt.Println("Daemon:   running")
	if state.DaemonPID > 0 {
		fmt.Printf("PID:      %d (supervisor), %d (daemon)\n", state.PID, state.DaemonPID)
	} else {
		fmt.Printf("PID:      %d (supervisor)\n", state.PID)
	}
	fmt.Printf("Uptime:   %s\n", uptime)
	if state.CrashCount > 0 {
		fmt.Printf("Crashes:  %d this session\n", state.CrashCount)
	} else {
		fmt.Println("Crashes:  0 this session")
	}
	return nil
}

// DaemonRunCmd runs the daemon loop in the foreground; this is what
// supervisor.Supervisor spawns as a subprocess.
type DaemonRunCmd struct{}

func (c *DaemonRunCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	r, err := repo.Open(root, cfg.RedactionOverrides)
	if err != nil {
		return err
	}
	defer r.Close()

	notifyCfg, err := config.LoadNotificationConfig(root)
	if err != nil {
		return err
	}

	// No desktop-notification dependency is wired in yet, so the CLI
	// defaults to a no-op notifier; an adapter satisfying daemon.Notifier
	// can be added later without touching the daemon itself.
	d, err := daemon.New(daemon.Options{
		Repo:           r,
		Notifier:       daemon.NoopNotifier{},
		SessionTimeout: daemon.DefaultSessionTimeout,
		MaxSessions:    1024,
	})
	if err != nil {
		return err
	}
	d.Dispatcher().SetConfig(notifyCfg)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	return d.Run(runCtx)
}

// ServeCmd runs the HTTP push/pull/metrics/tail API.
type ServeCmd struct {
	Listen string `help:"Listen address" default:":7777"`
	Token  string `help:"Bearer token required of callers; empty disables auth"`
}

func (c *ServeCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	srv := httpapi.NewServer(r, httpapi.Options{Listen: c.Listen, Token: c.Token})
	if err := srv.Start(); err != nil {
		return err
	}
	L_info("serve: listening", "addr", c.Listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	return srv.Stop()
}

// SyncCmd groups one-shot push/pull and the sync job scheduler.
type SyncCmd struct {
	Push SyncPushCmd `cmd:"" help:"Push a note to a remote"`
	Pull SyncPullCmd `cmd:"" help:"Pull a note from a remote"`
	Job  SyncJobCmd  `cmd:"" help:"Manage scheduled sync jobs"`
}

// SyncPushCmd pushes one note to a remote hub.
type SyncPushCmd struct {
	Remote string `arg:"" help:"Remote base URL"`
	ID     string `arg:"" help:"Object id, prefix, or position to push"`
}

func (c *SyncPushCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	id, err := r.ResolveObjectID(c.ID)
	if err != nil {
		return err
	}
	rec, err := r.LoadNote(id)
	if err != nil {
		return err
	}

	client := sync.NewClient(c.Remote, "")
	if _, err := client.Push(context.Background(), rec); err != nil {
		return err
	}
	fmt.Printf("Pushed %s to %s\n", rec.ObjectID, c.Remote)
	return nil
}

// SyncPullCmd pulls one note from a remote hub and stores it locally.
type SyncPullCmd struct {
	Remote   string `arg:"" help:"Remote base URL"`
	ObjectID string `arg:"" help:"Remote object id to pull"`
}

func (c *SyncPullCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	client := sync.NewClient(c.Remote, "")
	rec, err := client.Pull(context.Background(), c.ObjectID)
	if err != nil {
		return err
	}
	stored, err := r.StoreNote(rec.Note)
	if err != nil {
		return err
	}
	fmt.Printf("Pulled %s, stored as %s\n", c.ObjectID, stored.ObjectID)
	return nil
}

// SyncJobCmd manages the scheduled sync job store: at/every/cron-scheduled
// push/pull actions against a remote.
type SyncJobCmd struct {
	List   SyncJobListCmd   `cmd:"" help:"List all sync jobs"`
	Add    SyncJobAddCmd    `cmd:"" help:"Add a new sync job"`
	Remove SyncJobRemoveCmd `cmd:"" help:"Remove a sync job"`
	Run    SyncJobRunCmd    `cmd:"" help:"Run a sync job immediately"`
	Runs   SyncJobRunsCmd   `cmd:"" help:"Show a sync job's run history"`
	Kill   SyncJobKillCmd   `cmd:"" help:"Clear a stuck running state"`
}

type SyncJobListCmd struct{}

func (c *SyncJobListCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	store := cron.NewStoreForRepo(root)
	if err := store.Load(); err != nil {
		return err
	}
	jobs := store.GetAllJobs()
	if len(jobs) == 0 {
		fmt.Println("No sync jobs configured.")
		return nil
	}
	for _, job := range jobs {
		status := "enabled"
		if !job.Enabled {
			status = "disabled"
		}
		fmt.Printf("%s (%s)\n", job.Name, status)
		fmt.Printf("  ID:       %s\n", job.ID)
		fmt.Printf("  Action:   %s %s\n", job.Action.Kind, job.Action.Remote)
		fmt.Printf("  Schedule: %s\n", formatSyncSchedule(&job.Schedule))
		if job.IsRunning() {
			fmt.Printf("  RUNNING (use 'fukura sync job kill %s' to clear)\n", job.ID)
		}
		if job.State.NextRunAtMs != nil {
			fmt.Printf("  Next run: %s\n", time.UnixMilli(*job.State.NextRunAtMs).Format(time.RFC3339))
		}
		fmt.Println()
	}
	return nil
}

type SyncJobAddCmd struct {
	Name   string `arg:"" help:"Job name"`
	Kind   string `arg:"" help:"push or pull" enum:"push,pull"`
	Remote string `arg:"" help:"Remote base URL"`

	ObjectID string `help:"Object id to pull (required for pull)"`
	Every    string `help:"Run every interval (e.g. 5m, 2h)" xor:"schedule"`
	At       string `help:"Run once at a time (+5m, RFC3339)" xor:"schedule"`
	Cron     string `help:"Run on a 5-field cron expression" xor:"schedule"`
	Tz       string `help:"Timezone for the cron schedule"`
}

func (c *SyncJobAddCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	store := cron.NewStoreForRepo(root)
	if err := store.Load(); err != nil {
		return err
	}

	if c.Kind == cron.ActionKindPull && c.ObjectID == "" {
		return fmt.Errorf("--object-id is required for pull jobs")
	}

	schedule, err := buildScheduleFromFlags(c.Every, c.At, c.Cron, c.Tz)
	if err != nil {
		return err
	}

	job := &cron.SyncJob{
		Name:     c.Name,
		Enabled:  true,
		Schedule: schedule,
		Action:   cron.Action{Kind: c.Kind, Remote: c.Remote, ObjectID: c.ObjectID},
	}

	next, err := cron.NextRunTime(job, time.Now())
	if err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	job.SetNextRun(next)

	if err := store.AddJob(job); err != nil {
		return err
	}
	fmt.Printf("Job created: %s (ID: %s)\n", job.Name, job.ID)
	return nil
}

type SyncJobRemoveCmd struct {
	ID string `arg:"" help:"Job ID"`
}

func (c *SyncJobRemoveCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	store := cron.NewStoreForRepo(root)
	if err := store.Load(); err != nil {
		return err
	}
	job := store.GetJob(c.ID)
	if job == nil {
		return fmt.Errorf("job not found: %s", c.ID)
	}
	if err := store.DeleteJob(c.ID); err != nil {
		return err
	}
	fmt.Printf("Job '%s' removed.\n", job.Name)
	return nil
}

type SyncJobRunCmd struct {
	ID string `arg:"" help:"Job ID"`
}

func (c *SyncJobRunCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	svc := cron.NewService(r, "")
	if err := svc.Store().Load(); err != nil {
		return err
	}
	return svc.RunNow(context.Background(), c.ID)
}

type SyncJobRunsCmd struct {
	ID string `arg:"" help:"Job ID"`
}

func (c *SyncJobRunsCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	history := cron.NewHistoryManager(cron.DefaultRunsDir(root))
	runs, err := history.GetRecentRuns(c.ID)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %-6s %dms  %s\n", time.UnixMilli(run.Ts).Format(time.RFC3339), run.Status, run.DurationMs, run.Summary)
		if run.Error != "" {
			fmt.Printf("  error: %s\n", run.Error)
		}
	}
	return nil
}

type SyncJobKillCmd struct {
	ID string `arg:"" help:"Job ID"`
}

func (c *SyncJobKillCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	store := cron.NewStoreForRepo(root)
	if err := store.Load(); err != nil {
		return err
	}
	job := store.GetJob(c.ID)
	if job == nil {
		return fmt.Errorf("job not found: %s", c.ID)
	}
	if !job.IsRunning() {
		fmt.Printf("Job '%s' is not currently running.\n", job.Name)
		return nil
	}
	job.ClearRunning()
	if err := store.UpdateJob(job); err != nil {
		return err
	}
	fmt.Printf("Cleared running state for '%s'.\n", job.Name)
	return nil
}

func buildScheduleFromFlags(every, at, cronExpr, tz string) (cron.Schedule, error) {
	switch {
	case every != "":
		dur, err := cron.ParseDuration(every)
		if err != nil {
			return cron.Schedule{}, fmt.Errorf("invalid interval: %w", err)
		}
		return cron.Schedule{Kind: cron.ScheduleKindEvery, EveryMs: dur.Milliseconds()}, nil
	case at != "":
		atTime, err := cron.ParseAt(at, time.Now())
		if err != nil {
			return cron.Schedule{}, fmt.Errorf("invalid time: %w", err)
		}
		return cron.Schedule{Kind: cron.ScheduleKindAt, AtMs: atTime.UnixMilli()}, nil
	case cronExpr != "":
		return cron.Schedule{Kind: cron.ScheduleKindCron, Expr: cronExpr, Tz: tz}, nil
	default:
		return cron.Schedule{}, fmt.Errorf("must specify --every, --at, or --cron")
	}
}

func formatSyncSchedule(s *cron.Schedule) string {
	switch s.Kind {
	case cron.ScheduleKindAt:
		return fmt.Sprintf("at %s", time.UnixMilli(s.AtMs).Format(time.RFC3339))
	case cron.ScheduleKindEvery:
		return fmt.Sprintf("every %s", time.Duration(s.EveryMs)*time.Millisecond)
	case cron.ScheduleKindCron:
		if s.Tz != "" {
			return fmt.Sprintf("cron '%s' (%s)", s.Expr, s.Tz)
		}
		return fmt.Sprintf("cron '%s'", s.Expr)
	default:
		return "unknown"
	}
}

// ExportCmd renders the repository to static HTML.
type ExportCmd struct {
	Out   string `help:"Output directory" default:"./fukura-export"`
	Title string `help:"Index page title" default:"fukura notes"`
	Open  bool   `help:"Open the exported index.html in the default browser"`
}

func (c *ExportCmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := htmlexport.Export(r, htmlexport.Options{OutDir: c.Out, Title: c.Title}); err != nil {
		return err
	}
	indexPath := filepath.Join(c.Out, "index.html")
	fmt.Printf("Exported to %s\n", indexPath)

	if c.Open {
		if err := browseropen.Open(indexPath); err != nil {
			L_warn("export: failed to open index.html", "error", err)
		}
	}
	return nil
}

// TUICmd opens the interactive note browser.
type TUICmd struct{}

func (c *TUICmd) Run(ctx *Context) error {
	r, _, err := openRepo()
	if err != nil {
		return err
	}
	defer r.Close()
	return tui.Run(context.Background(), r)
}

// ConfigCmd groups configuration inspection subcommands.
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" default:"withargs" help:"Show the merged configuration"`
	Path ConfigPathCmd `cmd:"" help:"Show the local config file path"`
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

type ConfigPathCmd struct{}

func (c *ConfigPathCmd) Run(ctx *Context) error {
	root, err := discoverRoot()
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(root, ".fukura", "config"))
	return nil
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *Context) error {
	fmt.Printf("fukura %s\n", version)
	return nil
}

func getPidFromFile(pidFile string) (int, bool) {
	pidBytes, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidBytes)))
	if err != nil {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidFile)
		return pid, false
	}
	return pid, true
}

func isRunningAt(pidFile string) bool {
	_, running := getPidFromFile(pidFile)
	return running
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("fukura"),
		kong.Description("A local, content-addressed store for engineering notes"),
		kong.UsageOnError(),
		kong.Vars{"env_user": os.Getenv("USER")},
	)

	level := LevelInfo
	if cli.Trace {
		level = LevelTrace
	} else if cli.Debug {
		level = LevelDebug
	}
	Init(&Config{Level: level, ShowCaller: true})

	err := kctx.Run(&Context{Debug: cli.Debug, Trace: cli.Trace, Config: cli.Config})
	if err != nil {
		L_fatal("command failed", "error", err)
	}
}
