package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoicex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := NewLoader(nil).Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoader_FileEnvAndAliases(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
log_level: warn
ocr:
  engine: Tesseract
  raster_dpi: 200
  page_workers: 2
output:
  directory: /tmp/out
  json_layout: FLAT
store:
  driver: sqlite
  dsn: ledger.db
  dial_timeout: 5s
`)
	t.Setenv("INVOICEX_OCR_LANGUAGE", "deu")

	cfg, err := NewLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, 200, cfg.OCR.RasterDPI)
	assert.Equal(t, 2, cfg.OCR.PageWorkers)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, "/tmp/out", cfg.Output.Directory)
	assert.Equal(t, "flat", cfg.Output.JSONLayout)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Store.DialTimeout)
	assert.Equal(t, "invoice", cfg.Extraction.Profile)
}

func TestLoader_FlatAliases(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "ocrEnginePath: /opt/tesseract\nrasterDpi: 150\noutputDirectory: results\n")

	cfg, err := NewLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/tesseract", cfg.OCR.EnginePath)
	assert.Equal(t, 150, cfg.OCR.RasterDPI)
	assert.Equal(t, "results", cfg.Output.Directory)
}

func TestLoader_VerboseMeansDebug(t *testing.T) {
	isolate(t)
	l := NewLoader(nil)
	l.Viper().Set("verbose", true)
	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoader_Errors(t *testing.T) {
	isolate(t)

	_, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, CodeConfig, ErrorCode(err))

	_, err = NewLoader(nil).Load(writeConfig(t, "ocr:\n  engine: easyocr\n  raster_dpi: 5\n"))
	require.Error(t, err)
	assert.Equal(t, CodeConfig, ErrorCode(err))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "ocr.engine")
	assert.Contains(t, err.Error(), "ocr.raster_dpi")

	_, err = NewLoader(nil).Load(writeConfig(t, "store:\n  driver: postgres\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn")
}
