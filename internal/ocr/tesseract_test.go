package ocr

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tesseractStub writes <base>.txt plus the requested token file.
func tesseractStub(text, tsv, hocr string) *fakeRunner {
	return &fakeRunner{fn: func(_ string, args []string) ([]byte, []byte, error) {
		base := args[1]
		if err := os.WriteFile(base+".txt", []byte(text), 0o600); err != nil {
			return nil, nil, err
		}
		switch args[len(args)-1] {
		case "tsv":
			return nil, nil, os.WriteFile(base+".tsv", []byte(tsv), 0o600)
		case "hocr":
			return nil, nil, os.WriteFile(base+".hocr", []byte(hocr), 0o600)
		}
		return nil, nil, nil
	}}
}

func TestTesseractEngine_TSV(t *testing.T) {
	runner := tesseractStub("INVOICE # 37425\n\f", sampleTSV, "")
	e := NewTesseractEngine(Config{PSM: 6, TessdataDir: "/td"}, runner, nil)

	res, err := e.Recognize(context.Background(), PageImage{Number: 2, Path: "/tmp/page-2.png"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Number)
	assert.Equal(t, "INVOICE # 37425\n\f", res.Text)
	assert.Len(t, res.Tokens, 4)

	args := runner.calls[0].args
	assert.Equal(t, "/tmp/page-2.png", args[0])
	assert.Equal(t, []string{"-l", "eng", "--psm", "6", "--tessdata-dir", "/td", "txt", "tsv"}, args[2:])
}

func TestTesseractEngine_HOCR(t *testing.T) {
	runner := tesseractStub("Bill To: Aaron", "", sampleHOCR)
	e := NewTesseractEngine(Config{TokenFormat: TokenFormatHOCR, Language: "eng+deu"}, runner, nil)

	res, err := e.Recognize(context.Background(), PageImage{Number: 1, Path: "p.png"})
	require.NoError(t, err)
	assert.Len(t, res.Tokens, 3)
	assert.Equal(t, "hocr", runner.calls[0].args[len(runner.calls[0].args)-1])
	assert.Equal(t, "eng+deu", runner.calls[0].args[3])
}

func TestTesseractEngine_Failure(t *testing.T) {
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Error in pixReadStream"), errExit
	}}
	_, err := NewTesseractEngine(Config{}, runner, nil).Recognize(context.Background(), PageImage{Number: 3, Path: "x.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 3")
	assert.ErrorIs(t, err, errExit)
}

type recordingEngine struct {
	got PageImage
	img image.Image
}

func (r *recordingEngine) Recognize(_ context.Context, p PageImage) (PageText, error) {
	r.got = p
	img, err := imaging.Open(p.Path)
	if err != nil {
		return PageText{}, err
	}
	r.img = img
	return PageText{Number: p.Number, Text: "ok"}, nil
}

func TestGrayscaleEngine(t *testing.T) {
	src := imaging.New(300, 100, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	in := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, imaging.Save(src, in))

	next := &recordingEngine{}
	res, err := NewGrayscaleEngine(next, nil).Recognize(context.Background(), PageImage{Number: 1, Path: in})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.NotEqual(t, in, next.got.Path)
	assert.Equal(t, 600, next.img.Bounds().Dx())

	r, g, b, _ := next.img.At(10, 10).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)

	_, err = os.Stat(next.got.Path)
	assert.True(t, os.IsNotExist(err), "preprocessed copy is removed")
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(Config{}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &TesseractEngine{}, e)

	e, err = NewEngine(Config{Grayscale: true}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &GrayscaleEngine{}, e)

	_, err = NewEngine(Config{Engine: "paddle"}, nil, nil)
	assert.Error(t, err)
}
