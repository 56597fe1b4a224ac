package importer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"
)

const listingPage = `<!doctype html>
<html>
<head>
  <meta property="og:title" content="Apartamento T2 em Lisboa, Parque das Nações">
</head>
<body>
  <h1>Apartamento T2</h1>
  <span itemprop="price" content="350000">350.000 €</span>
  <div class="address">Rua do Mar, Lisboa</div>
  <ul>
    <li>Área útil 95,5 m²</li>
    <li>Garagem para 1 carro</li>
    <li>Varanda</li>
  </ul>
  <p>Publicado há 42 dias</p>
</body>
</html>`

func TestParseListingStructuredPage(t *testing.T) {
	listing, err := ParseListing(strings.NewReader(listingPage), "https://www.idealista.pt/imovel/123/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if listing.Portal != "idealista.pt" {
		t.Fatalf("expected portal idealista.pt, got %q", listing.Portal)
	}
	if listing.Development != "Apartamento T2 em Lisboa, Parque das Nações" {
		t.Fatalf("unexpected development %q", listing.Development)
	}
	if listing.Address != "Rua do Mar, Lisboa" {
		t.Fatalf("unexpected address %q", listing.Address)
	}
	if listing.Price != 350000 {
		t.Fatalf("expected price 350000, got %v", listing.Price)
	}
	if listing.Area != 95.5 {
		t.Fatalf("expected area 95.5, got %v", listing.Area)
	}
	if listing.Typology != "T2" {
		t.Fatalf("expected T2, got %q", listing.Typology)
	}
	if listing.DaysOnMarket == nil || *listing.DaysOnMarket != 42 {
		t.Fatalf("expected 42 days on market, got %v", listing.DaysOnMarket)
	}
	if !listing.HasGarage || !listing.HasExterior {
		t.Fatalf("expected garage and exterior, got %+v", listing)
	}

	draft := listing.Competitor("project-1", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	if draft.PricePerM2 <= 0 {
		t.Fatalf("expected computed price per m2, got %v", draft.PricePerM2)
	}
}

func TestParseListingFreeText(t *testing.T) {
	page := `<html><body><h1>Moradia T4</h1><div class="price">1 250 000 €</div><p>220 m2 de construção</p></body></html>`

	listing, err := ParseListing(strings.NewReader(page), "https://casa.sapo.pt/x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if listing.Price != 1250000 {
		t.Fatalf("expected 1250000, got %v", listing.Price)
	}
	if listing.Area != 220 {
		t.Fatalf("expected 220, got %v", listing.Area)
	}
	if listing.Typology != "T4" {
		t.Fatalf("expected T4, got %q", listing.Typology)
	}
	if listing.HasGarage || listing.HasExterior || listing.DaysOnMarket != nil {
		t.Fatalf("unexpected amenities %+v", listing)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"350.000 €", 350000},
		{"1.234,50", 1234.5},
		{"€ 99", 99},
		{"sob consulta", 0},
	}
	for _, tt := range tests {
		if got := parseAmount(tt.in); got != tt.want {
			t.Fatalf("parseAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, listingPage)
	}))
	defer srv.Close()

	imp := NewWithClient(srv.Client(), logger.NewWithWriter("test", io.Discard))

	listing, err := imp.Fetch(context.Background(), srv.URL+"/listing")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if listing.Price != 350000 {
		t.Fatalf("expected parsed price, got %v", listing.Price)
	}

	_, err = imp.Fetch(context.Background(), srv.URL+"/missing")
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for 404 page, got %v", err)
	}

	_, err = imp.Fetch(context.Background(), "ftp://example.com/x")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for non-http url, got %v", err)
	}
}
