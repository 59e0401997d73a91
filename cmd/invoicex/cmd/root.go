package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// errDocumentsFailed makes the process exit non-zero after a run in which
// at least one document produced no output.
var errDocumentsFailed = errors.New("one or more documents failed")

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	loader  *common.Loader
	cfgFile string
	cfg     *common.Config
	logger  *slog.Logger
}

// Execute runs the CLI and returns the process exit code: 0 on success,
// 2 for configuration or profile errors, 1 otherwise.
func Execute(info BuildInfo) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(info)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errDocumentsFailed) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		}
		return ExitCode(err)
	}
	return 0
}

func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case common.ErrorCode(err) == common.CodeConfig, common.ErrorCode(err) == common.CodeProfile:
		return 2
	default:
		return 1
	}
}

// NewRootCommand builds the command tree with its own viper instance so
// tests can run several trees side by side.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{loader: common.NewLoader(viper.New())}

	root := &cobra.Command{
		Use:   "invoicex",
		Short: "Extract structured fields with confidence scores from invoice PDFs and images",
		Long: `invoicex rasterizes invoice PDFs (or takes images directly), runs OCR, and
extracts a fixed set of named fields with a regex profile. Each field carries the
OCR confidence of its words; derived fields such as final_total are computed with
decimal arithmetic. Records are written as JSON and XLSX.

Examples:
  invoicex extract invoice.pdf
  invoicex batch invoices/ --recursive --summary
  invoicex watch inbox/ --initial-scan
  invoicex profiles show invoice`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $XDG_CONFIG_HOME/invoicex, /etc/invoicex)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.StringP("profile", "p", "", "built-in extraction profile name")
	pf.String("profile-file", "", "YAML extraction profile (overrides --profile)")
	pf.StringP("output", "o", "", "output directory")
	pf.String("json-layout", "", "record JSON layout (nested, flat)")
	pf.String("engine", "", "OCR engine (tesseract, gosseract)")
	pf.String("ocr-engine-path", "", "tesseract binary")
	pf.String("rasterizer", "", "PDF rasterizer (pdftoppm, pdfcpu)")
	pf.Int("raster-dpi", 0, "rasterization DPI")
	pf.Int("page-workers", 0, "pages recognized concurrently per document")
	pf.String("store-driver", "", "job ledger driver (sqlite, postgres); empty disables the ledger")
	pf.String("store-dsn", "", "job ledger DSN")
	pf.String("metrics-textfile", "", "write Prometheus metrics to this file when the run ends")

	bindFlags(a.loader.Viper(), pf, map[string]string{
		"verbose":                 "verbose",
		"log_level":               "log-level",
		"extraction.profile":      "profile",
		"extraction.profile_file": "profile-file",
		"output.directory":        "output",
		"output.json_layout":      "json-layout",
		"ocr.engine":              "engine",
		"ocr.engine_path":         "ocr-engine-path",
		"ocr.rasterizer":          "rasterizer",
		"ocr.raster_dpi":          "raster-dpi",
		"ocr.page_workers":        "page-workers",
		"store.driver":            "store-driver",
		"store.dsn":               "store-dsn",
		"metrics.textfile":        "metrics-textfile",
	})

	root.AddCommand(
		newExtractCommand(a),
		newBatchCommand(a),
		newWatchCommand(a),
		newProfilesCommand(a),
		newJobsCommand(a),
	)
	return root
}

// initConfig loads .env, then the config file, environment and flags, and
// installs the JSON logger. Logs go to stderr so stdout stays parseable.
func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return common.NewAppError(common.CodeConfig, "load .env", err)
	}
	cfg, err := a.loader.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(a.logger)
	if used := a.loader.ConfigFileUsed(); used != "" {
		a.logger.Debug("config loaded", "file", used)
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
