package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head><title></title><meta name='ocr-system' content='tesseract 5.3.0' /></head>
 <body>
  <div class='ocr_page' id='page_1' title='image "page-1.png"; bbox 0 0 2480 3508; ppageno 0'>
   <span class='ocr_line' id='line_1_1' title="bbox 10 10 400 50; baseline 0 -8">
    <span class='ocrx_word' id='word_1_1' title='bbox 10 10 130 50; x_wconf 96'>Bill</span>
    <span class='ocrx_word' id='word_1_2' title='bbox 140 10 200 50; x_wconf 93'><strong>To:</strong></span>
    <span class='ocrx_word' id='word_1_3' title='bbox 210 10 300 50'>NoConf</span>
    <span class='ocrx_word' id='word_1_4' title='bbox 310 10 400 50; x_wconf 71'>Aaron</span>
   </span>
  </div>
 </body>
</html>`

func TestParseHOCR(t *testing.T) {
	tokens, err := ParseHOCR([]byte(sampleHOCR))
	require.NoError(t, err)
	assert.Equal(t, []Token{
		{Text: "Bill", Confidence: 0.96},
		{Text: "To:", Confidence: 0.93},
		{Text: "Aaron", Confidence: 0.71},
	}, tokens)
}

func TestParseTitle(t *testing.T) {
	props := parseTitle("bbox 100 200 300 400; x_wconf 95")
	assert.Equal(t, []string{"100", "200", "300", "400"}, props["bbox"])
	assert.Equal(t, []string{"95"}, props["x_wconf"])
}

func TestScaleConfidence(t *testing.T) {
	assert.Equal(t, 0.0, scaleConfidence(-5))
	assert.Equal(t, 0.5, scaleConfidence(50))
	assert.Equal(t, 1.0, scaleConfidence(140))
}
