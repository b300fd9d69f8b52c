package policy

import (
	"bytes"
	"html"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

var (
	convOnce sync.Once
	mdConv   *converter.Converter
	stripper *bluemonday.Policy
)

func initConverters() {
	mdConv = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	stripper = bluemonday.StrictPolicy()
}

// ToText renders a fetched policy document to plain text for the fact
// detectors. PDF bodies go through the pdfcpu extractor; HTML goes through
// the markdown converter, with a tag-stripping fallback when conversion
// fails on malformed input.
func ToText(body []byte, contentType string) string {
	if isPDF(body, contentType) {
		return extractPDFText(body)
	}

	convOnce.Do(initConverters)
	if md, err := mdConv.ConvertString(string(body)); err == nil {
		return md
	}
	plain := stripper.Sanitize(string(body))
	return html.UnescapeString(plain)
}

func isPDF(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF"))
}
