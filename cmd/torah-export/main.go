// Command torah-export exports the Torah SQLite corpus as JSON artifacts for
// static sites, backup and search.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/TorahExport/core/sqlite"
	"github.com/FocuswithJustin/TorahExport/internal/archive"
	"github.com/FocuswithJustin/TorahExport/internal/config"
	"github.com/FocuswithJustin/TorahExport/internal/export"
	"github.com/FocuswithJustin/TorahExport/internal/logging"
)

const version = "1.0.0"

// CLI holds the parsed command line.
var CLI cli

// cli defines the command-line interface for torah-export.
type cli struct {
	Config       string   `name:"config" short:"c" help:"YAML configuration file" type:"existingfile"`
	DB           string   `name:"db" help:"Source SQLite database (default torah.db)"`
	Out          string   `name:"out" short:"o" help:"Output directory (default torah_json_export)"`
	Codec        string   `name:"codec" help:"Compression codec: gzip, xz or zstd"`
	Jobs         int      `name:"jobs" short:"j" help:"Books assembled in parallel"`
	PreviewRunes int      `name:"preview-runes" default:"-1" help:"Verse preview length in search tuples, 0 for full text"`
	Emit         []string `name:"emit" sep:"," help:"Emitters to run, overriding the mode"`
	NoClean      bool     `name:"no-clean" help:"Keep previous output directories"`
	LogLevel     string   `name:"log-level" help:"debug, info, warn or error"`
	LogFormat    string   `name:"log-format" help:"text or json"`

	Full     FullCmd     `cmd:"" default:"1" help:"Raw tables, structured tree, per-book files, combined export, parsha and search"`
	Optimize OptimizeCmd `cmd:"" help:"Compact site artifacts: book index, chunks, search and parsha tuples"`
	All      AllCmd      `cmd:"" help:"Every artifact family"`
	Verify   VerifyCmd   `cmd:"" help:"Check an export directory or bundle against its manifest"`
	Bundle   BundleCmd   `cmd:"" help:"Pack an export directory into a tar.gz or tar.xz bundle"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// FullCmd runs the full export.
type FullCmd struct{}

func (c *FullCmd) Run() error {
	return runExport(config.ModeFull)
}

// OptimizeCmd runs the compact export.
type OptimizeCmd struct{}

func (c *OptimizeCmd) Run() error {
	return runExport(config.ModeOptimize)
}

// AllCmd runs every emitter.
type AllCmd struct{}

func (c *AllCmd) Run() error {
	return runExport(config.ModeAll)
}

// VerifyCmd checks an export against its manifest.
type VerifyCmd struct {
	Path string `arg:"" help:"Export directory or bundle" type:"existingpath"`
}

func (c *VerifyCmd) Run() error {
	if _, err := setup(); err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	r, err := export.Verify(ctx, c.Path)
	if err != nil {
		return err
	}

	ei := r.Manifest.ExportInfo
	fmt.Printf("Export: %s\n", c.Path)
	fmt.Printf("  Created: %s\n", ei.Created)
	fmt.Printf("  Source: %s (%s)\n", ei.SourceDatabase, ei.SourceSHA256)
	fmt.Printf("  Artifacts: %d (%s)\n", r.Checked, ei.TotalSizeHuman)
	for _, p := range r.Problems {
		logging.Warn("verify_problem", "path", p.Path, "message", p.Message)
		fmt.Printf("  [FAIL] %s\n", p)
	}
	if !r.OK() {
		return fmt.Errorf("verification failed: %d problems", len(r.Problems))
	}
	fmt.Println("  [OK] all artifacts match the manifest")
	return nil
}

// BundleCmd packs an export directory.
type BundleCmd struct {
	Dir    string `arg:"" help:"Export directory" type:"existingdir"`
	Format string `name:"format" short:"f" default:"tar.gz" enum:"tar.gz,tar.xz" help:"Bundle format"`
	Output string `name:"output" help:"Bundle path (default <dir>.<format>)"`
}

func (c *BundleCmd) Run() error {
	if _, err := setup(); err != nil {
		return err
	}
	format, err := archive.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	path, err := export.Bundle(c.Dir, c.Output, format)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	logging.Info("bundle_written", "path", path, "format", string(format), "size_bytes", info.Size())
	fmt.Printf("Bundle: %s (%s)\n", path, export.FormatSize(info.Size()))
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("torah-export version %s (sqlite driver: %s)\n", version, sqlite.DriverType())
	return nil
}

func runExport(mode string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	cfg.Mode = mode

	ctx, stop := signalContext()
	defer stop()

	x := &export.Exporter{
		Config:  cfg,
		Out:     os.Stdout,
		Version: version,
	}
	_, err = x.Run(ctx)
	return err
}

// setup resolves the configuration (defaults, then the config file, then
// flags) and initializes logging from it.
func setup() (config.Config, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return cfg, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return cfg, err
	}
	logging.InitLogger(level, format)
	return cfg, nil
}

func resolveConfig() (config.Config, error) {
	cfg := config.Default()
	if CLI.Config != "" {
		var err error
		if cfg, err = config.Load(CLI.Config); err != nil {
			return cfg, err
		}
	}

	if CLI.DB != "" {
		cfg.Database = CLI.DB
	}
	if CLI.Out != "" {
		cfg.OutputDir = CLI.Out
	}
	if CLI.Codec != "" {
		cfg.Codec = CLI.Codec
	}
	if CLI.Jobs > 0 {
		cfg.Jobs = CLI.Jobs
	}
	if CLI.PreviewRunes >= 0 {
		cfg.PreviewRunes = CLI.PreviewRunes
	}
	if len(CLI.Emit) > 0 {
		cfg.Emitters = CLI.Emit
	}
	if CLI.NoClean {
		cfg.Clean = false
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Log.Format = CLI.LogFormat
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("torah-export"),
		kong.Description("Export the Torah SQLite corpus as JSON artifacts"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
