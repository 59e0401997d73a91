package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// Recorder holds the extraction metrics on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	documentsTotal   *prometheus.CounterVec
	documentDuration prometheus.Histogram
	pagesTotal       prometheus.Counter
	fieldsTotal      *prometheus.CounterVec
	fieldConfidence  *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		documentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoicex_documents_total",
				Help: "Documents processed, by outcome",
			},
			[]string{"status"}, // ok, failed
		),
		documentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoicex_document_duration_seconds",
			Help:    "Wall time from rasterization to export per document",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
		pagesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "invoicex_pages_total",
			Help: "Pages recognized",
		}),
		fieldsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoicex_fields_total",
				Help: "Extracted fields, by name and whether the rule matched",
			},
			[]string{"field", "matched"},
		),
		fieldConfidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invoicex_field_confidence",
				Help:    "Confidence of matched fields",
				Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
			},
			[]string{"field"},
		),
	}
}

// ObserveDocument records one document outcome.
func (r *Recorder) ObserveDocument(status string, d time.Duration, pages int) {
	if r == nil {
		return
	}
	r.documentsTotal.WithLabelValues(status).Inc()
	r.documentDuration.Observe(d.Seconds())
	if pages > 0 {
		r.pagesTotal.Add(float64(pages))
	}
}

// ObserveRecord records per-field match and confidence.
func (r *Recorder) ObserveRecord(rec *extract.Record) {
	if r == nil || rec == nil {
		return
	}
	for _, f := range rec.Fields() {
		if f.Derived {
			continue
		}
		matched := "false"
		if f.Value != "" {
			matched = "true"
			r.fieldConfidence.WithLabelValues(f.Name).Observe(f.Confidence)
		}
		r.fieldsTotal.WithLabelValues(f.Name, matched).Inc()
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
