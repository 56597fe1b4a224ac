// Package importer reads a competitor listing page from a property portal and
// turns it into a draft competitor.
package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"leadboard_backend/internal/kpi"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout = 20 * time.Second
	maxPageBytes   = 4 << 20
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

var (
	areaPattern     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:m²|m2\b)`)
	typologyPattern = regexp.MustCompile(`\bT(\d{1,2})\b`)
	daysPattern     = regexp.MustCompile(`(?i)(?:há|ha)\s+(\d+)\s+dias?`)

	garageWords   = []string{"garagem", "estacionamento", "parking"}
	exteriorWords = []string{"varanda", "terraço", "terraco", "jardim", "balcony", "terrace", "garden"}
)

// Listing is what could be read from a listing page. Zero values mean the
// field was not found.
type Listing struct {
	Portal       string
	Development  string
	Address      string
	Typology     string
	Area         float64
	Price        float64
	HasGarage    bool
	HasExterior  bool
	DaysOnMarket *int
	SourceURL    string
}

// Competitor converts the listing into a competitor draft for a project.
func (l Listing) Competitor(projectID string, observedAt time.Time) kpi.Competitor {
	return kpi.Competitor{
		ProjectID:    projectID,
		ObservedAt:   observedAt,
		Portal:       l.Portal,
		Development:  l.Development,
		Address:      l.Address,
		Typology:     l.Typology,
		Area:         l.Area,
		Price:        l.Price,
		PricePerM2:   kpi.PricePerM2(l.Price, l.Area),
		HasGarage:    l.HasGarage,
		HasExterior:  l.HasExterior,
		DaysOnMarket: l.DaysOnMarket,
		SourceURL:    l.SourceURL,
	}
}

// Importer fetches listing pages.
type Importer struct {
	httpClient *http.Client
	log        *logger.Logger
}

// New creates an Importer with a bounded HTTP timeout.
func New(log *logger.Logger) *Importer {
	return NewWithClient(&http.Client{Timeout: defaultTimeout}, log)
}

// NewWithClient creates an Importer using the given client.
func NewWithClient(client *http.Client, log *logger.Logger) *Importer {
	return &Importer{httpClient: client, log: log}
}

// Fetch downloads and parses a listing page.
func (i *Importer) Fetch(ctx context.Context, listingURL string) (Listing, error) {
	parsed, err := url.Parse(listingURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Listing{}, apperr.Validation("listing url must be an absolute http(s) url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return Listing{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-PT,pt;q=0.9,en;q=0.8")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		i.log.Warn("listing fetch failed", "url", listingURL, "error", err)
		return Listing{}, apperr.Wrap(apperr.KindUnavailable, "listing page could not be fetched", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		i.log.Warn("listing fetch returned non-200", "url", listingURL, "status", resp.StatusCode)
		return Listing{}, apperr.BadRequest(fmt.Sprintf("listing page returned status %d", resp.StatusCode))
	}

	listing, err := ParseListing(io.LimitReader(resp.Body, maxPageBytes), listingURL)
	if err != nil {
		return Listing{}, apperr.Wrap(apperr.KindBadRequest, "listing page could not be parsed", err)
	}
	return listing, nil
}

// ParseListing extracts a Listing from a portal page. Structured data
// (itemprop and Open Graph tags) wins over free text.
func ParseListing(r io.Reader, sourceURL string) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Listing{}, fmt.Errorf("parse html: %w", err)
	}

	body := normalizeSpace(doc.Find("body").Text())
	listing := Listing{
		Portal:      portalFromURL(sourceURL),
		Development: firstNonEmpty(metaContent(doc, "og:title"), text(doc, "h1")),
		Address: firstNonEmpty(
			metaContent(doc, "og:street-address"),
			text(doc, "[itemprop='streetAddress']"),
			text(doc, "[itemprop='address']"),
			text(doc, ".address"),
		),
		SourceURL: sourceURL,
	}

	listing.Price = parseAmount(firstNonEmpty(
		attr(doc, "[itemprop='price']", "content"),
		attr(doc, "[data-price]", "data-price"),
		text(doc, ".price"),
	))

	if m := areaPattern.FindStringSubmatch(firstNonEmpty(text(doc, "[itemprop='floorSize']"), body)); m != nil {
		listing.Area = parseDecimal(m[1])
	}

	if m := typologyPattern.FindStringSubmatch(listing.Development + " " + body); m != nil {
		listing.Typology = "T" + m[1]
	}

	if m := daysPattern.FindStringSubmatch(body); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			listing.DaysOnMarket = &days
		}
	}

	lower := strings.ToLower(body)
	listing.HasGarage = containsAny(lower, garageWords)
	listing.HasExterior = containsAny(lower, exteriorWords)

	return listing, nil
}

func metaContent(doc *goquery.Document, property string) string {
	value, _ := doc.Find("meta[property='" + property + "']").First().Attr("content")
	return strings.TrimSpace(value)
}

func text(doc *goquery.Document, selector string) string {
	return normalizeSpace(doc.Find(selector).First().Text())
}

func attr(doc *goquery.Document, selector, name string) string {
	value, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(value)
}

// parseAmount reads "350.000 €" or "1 234,50" as a number. Dots are
// thousands separators.
func parseAmount(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	cleaned := b.String()
	if strings.Count(cleaned, ".") > 1 {
		cleaned = strings.Replace(cleaned, ".", "", strings.Count(cleaned, ".")-1)
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func parseDecimal(raw string) float64 {
	value, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return value
}

func portalFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func normalizeSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
