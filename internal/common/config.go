package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "invoicex"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "INVOICEX"
)

// Config holds all application configuration
type Config struct {
	LogLevel   string           `mapstructure:"log_level" yaml:"log_level"`
	Verbose    bool             `mapstructure:"verbose" yaml:"verbose"`
	OCR        OCRConfig        `mapstructure:"ocr" yaml:"ocr"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

// OCRConfig holds rasterizer and OCR engine configuration
type OCRConfig struct {
	Engine         string `mapstructure:"engine" yaml:"engine"`           // tesseract | gosseract
	EnginePath     string `mapstructure:"engine_path" yaml:"engine_path"` // tesseract binary
	Rasterizer     string `mapstructure:"rasterizer" yaml:"rasterizer"`   // pdftoppm | pdfcpu
	RasterizerPath string `mapstructure:"rasterizer_path" yaml:"rasterizer_path"`
	RasterDPI      int    `mapstructure:"raster_dpi" yaml:"raster_dpi"`
	Language       string `mapstructure:"language" yaml:"language"`
	PSM            int    `mapstructure:"psm" yaml:"psm"`
	OEM            int    `mapstructure:"oem" yaml:"oem"`
	TessdataDir    string `mapstructure:"tessdata_dir" yaml:"tessdata_dir"`
	TokenFormat    string `mapstructure:"token_format" yaml:"token_format"` // tsv | hocr
	MaxPages       int    `mapstructure:"max_pages" yaml:"max_pages"`
	PageWorkers    int    `mapstructure:"page_workers" yaml:"page_workers"`
	Grayscale      bool   `mapstructure:"grayscale" yaml:"grayscale"`
}

// OutputConfig controls what is written per document
type OutputConfig struct {
	Directory    string `mapstructure:"directory" yaml:"directory"`
	JSONLayout   string `mapstructure:"json_layout" yaml:"json_layout"` // nested | flat
	WriteXLSX    bool   `mapstructure:"write_xlsx" yaml:"write_xlsx"`
	WriteRawText bool   `mapstructure:"write_raw_text" yaml:"write_raw_text"`
	Summary      bool   `mapstructure:"summary" yaml:"summary"`
}

// ExtractionConfig selects the field rule profile
type ExtractionConfig struct {
	Profile     string `mapstructure:"profile" yaml:"profile"`
	ProfileFile string `mapstructure:"profile_file" yaml:"profile_file"`
}

// StoreConfig holds the optional job ledger connection
type StoreConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"` // "" | sqlite | postgres
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns" yaml:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		OCR: OCRConfig{
			Engine:         "tesseract",
			EnginePath:     "tesseract",
			Rasterizer:     "pdftoppm",
			RasterizerPath: "pdftoppm",
			RasterDPI:      300,
			Language:       "eng",
			TokenFormat:    "tsv",
			PageWorkers:    4,
		},
		Output: OutputConfig{
			Directory:  "output",
			JSONLayout: "nested",
			WriteXLSX:  true,
		},
		Extraction: ExtractionConfig{
			Profile: "invoice",
		},
		Store: StoreConfig{
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
	}
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("log_level", c.LogLevel, OneOf("debug", "info", "warn", "error"))
	v.Field("ocr.engine", c.OCR.Engine, OneOf("tesseract", "gosseract"))
	v.Field("ocr.rasterizer", c.OCR.Rasterizer, OneOf("pdftoppm", "pdfcpu"))
	v.Field("ocr.token_format", c.OCR.TokenFormat, OneOf("tsv", "hocr"))
	v.Field("ocr.raster_dpi", c.OCR.RasterDPI, IntRange(50, 1200))
	v.Field("ocr.page_workers", c.OCR.PageWorkers, IntRange(1, 64))
	v.Field("ocr.max_pages", c.OCR.MaxPages, IntRange(0, 10000))
	v.Field("output.directory", c.Output.Directory, Required)
	v.Field("output.json_layout", c.Output.JSONLayout, OneOf("nested", "flat"))
	v.Field("store.driver", c.Store.Driver, OneOf("", "sqlite", "postgres"))
	if c.Store.Driver != "" {
		v.Field("store.dsn", c.Store.DSN, Required)
	}
	if c.Extraction.ProfileFile == "" {
		v.Field("extraction.profile", c.Extraction.Profile, Required)
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// Loader handles loading configuration from files, environment and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader wraps v; nil gets a fresh viper instance.
func NewLoader(v *viper.Viper) *Loader {
	if v == nil {
		v = viper.New()
	}
	return &Loader{v: v}
}

// Viper returns the underlying viper instance so commands can bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads configFile (or searches the standard paths when empty),
// overlays environment variables and returns the validated configuration.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, NewAppError(CodeConfig, "config file does not exist: "+configFile, err)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, NewAppError(CodeConfig, "read config", err)
		}
	}
	l.applyAliases()

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "unmarshal config", err)
	}
	cfg.OCR.Engine = strings.ToLower(cfg.OCR.Engine)
	cfg.OCR.Rasterizer = strings.ToLower(cfg.OCR.Rasterizer)
	cfg.OCR.TokenFormat = strings.ToLower(cfg.OCR.TokenFormat)
	cfg.Output.JSONLayout = strings.ToLower(cfg.Output.JSONLayout)
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		l.v.AddConfigPath(filepath.Join(configDir, "invoicex"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "invoicex"))
	}
	l.v.AddConfigPath("/etc/invoicex")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// legacyAliases maps the flat option names used by earlier releases to
// their nested keys.
var legacyAliases = map[string]string{
	"ocrEnginePath":   "ocr.engine_path",
	"rasterDpi":       "ocr.raster_dpi",
	"outputDirectory": "output.directory",
}

// applyAliases lets a flat legacy key in the config file stand in for its
// nested key. The nested key, environment and flags still take precedence.
func (l *Loader) applyAliases() {
	for alias, key := range legacyAliases {
		if l.v.InConfig(alias) && !l.v.InConfig(key) {
			l.v.SetDefault(key, l.v.Get(alias))
		}
	}
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("ocr.engine", d.OCR.Engine)
	l.v.SetDefault("ocr.engine_path", d.OCR.EnginePath)
	l.v.SetDefault("ocr.rasterizer", d.OCR.Rasterizer)
	l.v.SetDefault("ocr.rasterizer_path", d.OCR.RasterizerPath)
	l.v.SetDefault("ocr.raster_dpi", d.OCR.RasterDPI)
	l.v.SetDefault("ocr.language", d.OCR.Language)
	l.v.SetDefault("ocr.psm", d.OCR.PSM)
	l.v.SetDefault("ocr.oem", d.OCR.OEM)
	l.v.SetDefault("ocr.tessdata_dir", d.OCR.TessdataDir)
	l.v.SetDefault("ocr.token_format", d.OCR.TokenFormat)
	l.v.SetDefault("ocr.max_pages", d.OCR.MaxPages)
	l.v.SetDefault("ocr.page_workers", d.OCR.PageWorkers)
	l.v.SetDefault("ocr.grayscale", d.OCR.Grayscale)

	l.v.SetDefault("output.directory", d.Output.Directory)
	l.v.SetDefault("output.json_layout", d.Output.JSONLayout)
	l.v.SetDefault("output.write_xlsx", d.Output.WriteXLSX)
	l.v.SetDefault("output.write_raw_text", d.Output.WriteRawText)
	l.v.SetDefault("output.summary", d.Output.Summary)

	l.v.SetDefault("extraction.profile", d.Extraction.Profile)
	l.v.SetDefault("extraction.profile_file", d.Extraction.ProfileFile)

	l.v.SetDefault("store.driver", d.Store.Driver)
	l.v.SetDefault("store.dsn", d.Store.DSN)
	l.v.SetDefault("store.max_conns", d.Store.MaxConns)
	l.v.SetDefault("store.min_conns", d.Store.MinConns)
	l.v.SetDefault("store.max_conn_lifetime", d.Store.MaxConnLifetime)
	l.v.SetDefault("store.dial_timeout", d.Store.DialTimeout)

	l.v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}
