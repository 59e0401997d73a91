package ocr

import (
	"strconv"
	"strings"
)

// Column positions of tesseract's TSV output when the header is missing.
const (
	tsvLevelCol = 0
	tsvConfCol  = 10
	tsvTextCol  = 11
	tsvWordRow  = "5"
)

// ParseTSV returns the word tokens of tesseract TSV output in reading
// order. Rows with conf -1 or blank text are dropped.
func ParseTSV(data []byte) []Token {
	levelCol, confCol, textCol := tsvLevelCol, tsvConfCol, tsvTextCol

	var tokens []Token
	for i, ln := range strings.Split(string(data), "\n") {
		ln = strings.TrimRight(ln, "\r")
		if ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if i == 0 && cols[0] == "level" {
			for j, h := range cols {
				switch h {
				case "level":
					levelCol = j
				case "conf":
					confCol = j
				case "text":
					textCol = j
				}
			}
			continue
		}
		if len(cols) <= textCol || len(cols) <= confCol || cols[levelCol] != tsvWordRow {
			continue
		}
		text := strings.TrimSpace(cols[textCol])
		if text == "" || cols[confCol] == "-1" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[confCol], 64)
		if err != nil || conf < 0 {
			continue
		}
		tokens = append(tokens, Token{Text: text, Confidence: scaleConfidence(conf)})
	}
	return tokens
}
