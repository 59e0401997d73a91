package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

var errEngine = errors.New("tesseract: exit status 1")

// fakeRasterizer renders every PDF into n pages named <pdf>#<page>.
type fakeRasterizer struct {
	pages map[string]int
	err   error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, pdfPath string, _ int) (*ocr.Pages, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := f.pages[pdfPath]
	out := &ocr.Pages{}
	for i := 1; i <= n; i++ {
		out.Images = append(out.Images, ocr.PageImage{Number: i, Path: pdfPath + "#" + string(rune('0'+i))})
	}
	return out, nil
}

// fakeEngine answers from a table keyed by page image path. Lower page
// numbers are delayed longer so completion order is reversed.
type fakeEngine struct {
	mu    sync.Mutex
	pages map[string]ocr.PageText
	fail  map[string]bool
	calls int
}

func (f *fakeEngine) Recognize(ctx context.Context, page ocr.PageImage) (ocr.PageText, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	select {
	case <-time.After(time.Duration(10-page.Number) * 2 * time.Millisecond):
	case <-ctx.Done():
		return ocr.PageText{}, ctx.Err()
	}
	if f.fail[page.Path] {
		return ocr.PageText{}, errEngine
	}
	pt, ok := f.pages[page.Path]
	if !ok {
		return ocr.PageText{Number: page.Number}, nil
	}
	pt.Number = page.Number
	return pt, nil
}

// page builds a PageText whose tokens are the words of text, all with
// confidence conf unless overridden.
func page(text string, conf float64, overrides map[string]float64) ocr.PageText {
	var toks []ocr.Token
	for _, w := range strings.Fields(text) {
		c := conf
		if o, ok := overrides[w]; ok {
			c = o
		}
		toks = append(toks, ocr.Token{Text: w, Confidence: c})
	}
	return ocr.PageText{Text: text, Tokens: toks}
}

const (
	headerPage = "INVOICE # 37425\nDate: January 15 2019\nBill To: Aaron Hawkins\nShip Mode: Second Class\n"
	totalsPage = "Subtotal: $100.00\nDiscount (10%): $10.00\nShipping: $5.00\nTotal: $95.00\nBalance Due: $95.00\nOrder ID : CA-2019-104654\n"
)

func newTestProcessor(t *testing.T, r ocr.Rasterizer, e ocr.Engine) *Processor {
	t.Helper()
	p, err := extract.Builtin(extract.DefaultProfile)
	require.NoError(t, err)
	cp, err := extract.CompileProfile(p)
	require.NoError(t, err)
	return NewFromProfile(cp, NewOCRStage(r, e, 300, 4, nil), nil)
}
