package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rawProducts(n int) []RawProduct {
	out := make([]RawProduct, n)
	for i := range out {
		out[i] = RawProduct{ID: i + 1, Title: "Product", Price: float64(i) + 0.5}
	}
	return out
}

func TestMapProductsTruncatesAndKeepsOrder(t *testing.T) {
	resp := SearchResponse{Products: rawProducts(30)}

	got := MapProducts(resp, MaxProducts, "BRL")

	if len(got) != MaxProducts {
		t.Fatalf("expected %d products, got %d", MaxProducts, len(got))
	}
	for i, p := range got {
		if p.ID != i+1 {
			t.Errorf("product %d has ID %d, want %d", i, p.ID, i+1)
		}
	}
}

func TestMapProductsFewerThanLimit(t *testing.T) {
	resp := SearchResponse{Products: rawProducts(12)}

	got := MapProducts(resp, 0, "BRL")

	if len(got) != 12 {
		t.Errorf("expected 12 products, got %d", len(got))
	}
}

func TestMapProductsEmptyPayload(t *testing.T) {
	got := MapProducts(SearchResponse{}, MaxProducts, "BRL")
	if got == nil {
		t.Fatal("MapProducts should never return nil")
	}
	if len(got) != 0 {
		t.Errorf("expected no products, got %d", len(got))
	}
}

func TestMapProductsFields(t *testing.T) {
	resp := SearchResponse{Products: []RawProduct{{
		ID:          7,
		Title:       "Notebook Pro",
		Description: "A laptop",
		Price:       1234.5,
		Thumbnail:   "https://cdn.example.com/7.png",
	}, {
		ID:    8,
		Title: "No thumbnail",
		Price: 10,
	}}}

	got := MapProducts(resp, MaxProducts, "BRL")

	want := []Product{{
		ID:             7,
		Title:          "Notebook Pro",
		Price:          1234.5,
		PriceFormatted: "R$ 1.234,50",
		Thumbnail:      "https://cdn.example.com/7.png",
		Description:    "A laptop",
	}, {
		ID:             8,
		Title:          "No thumbnail",
		Price:          10,
		PriceFormatted: "R$ 10,00",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MapProducts mismatch (-want +got):\n%s", diff)
	}
}
