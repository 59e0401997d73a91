package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/metrics"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// bindFlags binds config keys to flags; keys map a viper key to a flag name.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// loadProfile resolves the configured profile: a YAML file when set,
// otherwise a built-in by name.
func loadProfile(cfg common.ExtractionConfig) (*extract.CompiledProfile, error) {
	var (
		p   *extract.Profile
		err error
	)
	if cfg.ProfileFile != "" {
		p, err = extract.LoadProfileFile(cfg.ProfileFile)
	} else {
		p, err = extract.Builtin(cfg.Profile)
	}
	if err != nil {
		return nil, err
	}
	return extract.CompileProfile(p)
}

func newProcessor(cfg *common.Config, cp *extract.CompiledProfile, logger *slog.Logger) (*pipeline.Processor, error) {
	ocrCfg := ocr.FromAppConfig(cfg.OCR)
	runner := ocr.NewExecRunner(logger)

	rasterizer, err := ocr.NewRasterizer(ocrCfg, runner, logger)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "rasterizer", err)
	}
	engine, err := ocr.NewEngine(ocrCfg, runner, logger)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "ocr engine", err)
	}
	stage := pipeline.NewOCRStage(rasterizer, engine, cfg.OCR.RasterDPI, cfg.OCR.PageWorkers, logger)
	return pipeline.NewFromProfile(cp, stage, logger), nil
}

// session is the fully wired batch plus what must be released after it.
type session struct {
	batch *pipeline.Batch
	db    *repository.DB
}

func (a *app) newSession(ctx context.Context) (*session, error) {
	cp, err := loadProfile(a.cfg.Extraction)
	if err != nil {
		return nil, err
	}
	proc, err := newProcessor(a.cfg, cp, a.logger)
	if err != nil {
		return nil, err
	}
	w, err := export.NewWriter(export.OptionsFromAppConfig(a.cfg.Output), proc.FieldNames(), a.logger)
	if err != nil {
		return nil, err
	}

	b := pipeline.NewBatch(proc, w, a.logger)
	b.Summary = a.cfg.Output.Summary
	b.Metrics = metrics.New()
	rt := &session{batch: b}

	if a.cfg.Store.Driver != "" {
		db, err := openStore(ctx, a.cfg.Store, a.logger)
		if err != nil {
			return nil, err
		}
		rt.db = db
		b.Jobs = repository.NewExtractJobRepository(db, a.logger)
	}

	a.logger.Info("pipeline ready",
		"profile", cp.Name(),
		"engine", a.cfg.OCR.Engine,
		"rasterizer", a.cfg.OCR.Rasterizer,
		"output", a.cfg.Output.Directory,
		"ledger", a.cfg.Store.Driver,
	)
	return rt, nil
}

// Close writes the metrics textfile (if configured) and closes the ledger.
func (rt *session) Close(textfile string, logger *slog.Logger) {
	if err := rt.batch.Metrics.WriteTextfile(textfile); err != nil {
		logger.Warn("failed to write metrics textfile", "path", textfile, "error", err)
	}
	if rt.db != nil {
		rt.db.Close()
	}
}

func openStore(ctx context.Context, sc common.StoreConfig, logger *slog.Logger) (*repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		Driver:          sc.Driver,
		DSN:             sc.DSN,
		MaxConns:        sc.MaxConns,
		MinConns:        sc.MinConns,
		MaxConnLifetime: sc.MaxConnLifetime,
		DialTimeout:     sc.DialTimeout,
	}, logger)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "open job ledger", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, common.NewAppError(common.CodeConfig, "migrate job ledger", err)
	}
	return db, nil
}
