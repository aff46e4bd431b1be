package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"imgfit/internal/config"
	"imgfit/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "imgfit",
	Short: "imgfit - shrink images to fit a byte and pixel budget",
	Long: "imgfit converts a tree of images so every output stays under a maximum file size " +
		"and a maximum longest side, searching encoder quality until the budget is met.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML or YAML config file (default $"+config.EnvPrefix+"CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text or json")
}

// limitFlags are shared by every command that plans or converts images.
type limitFlags struct {
	maxSize        string
	maxSide        int
	initialQuality int
	minQuality     int
	maxAttempts    int
	decay          float64
	workers        int
	autoOrient     bool
	skipExisting   bool
}

func (f *limitFlags) bind(set *pflag.FlagSet, convert bool) {
	set.StringVar(&f.maxSize, "max-size", "512000", "maximum output size, e.g. 500KiB or 512000")
	set.IntVar(&f.maxSide, "max-side", 1024, "maximum longest side in pixels")
	set.BoolVar(&f.autoOrient, "auto-orient", true, "apply EXIF orientation before planning")
	if !convert {
		return
	}
	set.IntVar(&f.initialQuality, "initial-quality", 95, "first quality tried")
	set.IntVar(&f.minQuality, "min-quality", 10, "lowest quality tried")
	set.IntVar(&f.maxAttempts, "max-attempts", 10, "encode attempts per image")
	set.Float64Var(&f.decay, "decay", 0.8, "quality multiplier between attempts")
	set.IntVarP(&f.workers, "workers", "w", 0, "concurrent conversions (0 = one per CPU)")
	set.BoolVar(&f.skipExisting, "skip-existing", false, "skip files already present in the destination")
}

// apply copies every flag the user set onto cfg.
func (f *limitFlags) apply(set *pflag.FlagSet, cfg *config.Config) {
	if set.Changed("max-size") {
		cfg.Limits.MaxFileSize = f.maxSize
	}
	if set.Changed("max-side") {
		cfg.Limits.MaxLongestSide = f.maxSide
	}
	if set.Changed("initial-quality") {
		cfg.Limits.InitialQuality = f.initialQuality
	}
	if set.Changed("min-quality") {
		cfg.Limits.MinQuality = f.minQuality
	}
	if set.Changed("max-attempts") {
		cfg.Limits.MaxAttempts = f.maxAttempts
	}
	if set.Changed("decay") {
		cfg.Limits.QualityDecay = f.decay
	}
	if set.Changed("workers") {
		cfg.Processing.Workers = f.workers
	}
	if set.Changed("auto-orient") {
		cfg.Processing.IgnoreOrientation = !f.autoOrient
	}
	if set.Changed("skip-existing") {
		cfg.Processing.SkipExisting = f.skipExisting
	}
	if set.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if set.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
}

// loadConfig resolves defaults, then the config file, then IMGFIT_*
// variables, then flags.
func loadConfig(cmd *cobra.Command, flags *limitFlags) (*config.Config, []string, error) {
	var notes []string

	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG_PATH")
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			notes = append(notes, fmt.Sprintf("config file %s not found, using defaults", path))
		case err != nil:
			return nil, nil, err
		default:
			cfg = loaded
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, nil, err
	}
	flags.apply(cmd.Flags(), cfg)

	if err := cfg.ParseAndValidate(); err != nil {
		return nil, nil, err
	}
	return cfg, notes, nil
}

func newLogger(cfg *config.Config, out io.Writer, notes []string) *logrus.Logger {
	log := logging.NewLogger(out, cfg.Logging.Level, cfg.Logging.Format)
	for _, note := range notes {
		log.Warn(note)
	}
	return log
}
