package suite

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

// disclosureMarkers are phrases an error page must never contain.
var disclosureMarkers = []string{
	"stack trace",
	"sensitive data",
	"Traceback (most recent call last)",
	"node_modules/",
	"at Object.<anonymous>",
	"goroutine 1 [running]",
}

// visibleText returns what a reader would see in body: the document text for
// HTML pages, the trimmed body otherwise.
func visibleText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if !looksLikeHTML(trimmed) {
		return string(trimmed)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return string(trimmed)
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}

// disclosureTexts is what a client reading err would see. HTML error pages
// contribute the status line and their visible text only, so markup such as
// script bodies is never scanned; other bodies are scanned as the full message.
func disclosureTexts(err error) []string {
	body := bytes.TrimSpace(gateway.Body(err))
	if len(body) > 0 && looksLikeHTML(body) {
		status := fmt.Sprintf("%sstatus %d", gateway.FailurePrefix, gateway.StatusCode(err))
		return []string{status, visibleText(body)}
	}
	return []string{err.Error()}
}

// findDisclosure returns the first disclosure marker found in any of texts.
func findDisclosure(texts ...string) (string, bool) {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, marker := range disclosureMarkers {
			if strings.Contains(lower, strings.ToLower(marker)) {
				return marker, true
			}
		}
	}
	return "", false
}
