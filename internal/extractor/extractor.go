// Package extractor pulls a price signal out of fetched product pages.
package extractor

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealwatch/pricewatch/internal/watch"
)

// DefaultSelector matches the whole-price element on Amazon-style product
// pages, the single structural rule this service applies.
const DefaultSelector = "span.a-price-whole"

// Selector implements watch.Extractor with one CSS selector rule: take the
// first matching element's text, strip thousands commas, and parse it as a
// decimal. Known limitation: currency symbols and non-comma separators are
// assumed absent; locale variations are not handled.
type Selector struct {
	selector string
}

// New builds a Selector. An empty selector falls back to DefaultSelector.
func New(selector string) *Selector {
	if selector == "" {
		selector = DefaultSelector
	}
	return &Selector{selector: selector}
}

// Extract parses the document and returns the price signal. A page without a
// matching element, or with unparsable text in it, yields the absence signal;
// only content that cannot be read as a document at all is an error.
func (s *Selector) Extract(content []byte) (watch.PriceSignal, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return watch.NoPrice(), fmt.Errorf("parse document: %w", err)
	}

	el := doc.Find(s.selector).First()
	if el.Length() == 0 {
		return watch.NoPrice(), nil
	}

	price, ok := parsePrice(el.Text())
	if !ok {
		return watch.NoPrice(), nil
	}
	return watch.Price(price), nil
}

// parsePrice cleans the element text and parses it as a non-negative decimal.
// The whole-price element often carries a trailing decimal point fragment, so
// one is tolerated.
func parsePrice(text string) (float64, bool) {
	cleaned := strings.ReplaceAll(text, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, ".")
	if cleaned == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}
