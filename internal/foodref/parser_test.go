package foodref

import (
	"testing"
	"time"
)

func TestParseProductPayload(t *testing.T) {
	payload := []byte(`{"status":1,"code":"737628064502","product":{"code":"737628064502","product_name":"Rice Noodles","brands":"Thai Kitchen","nutriments":{"energy-kcal_100g":385,"proteins_100g":7.7,"carbohydrates_100g":76.9,"fat_100g":3.8},"countries":"US"}}`)

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ref, err := ParseProductPayload(payload, now)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if ref.Barcode != "737628064502" {
		t.Fatalf("unexpected barcode %q", ref.Barcode)
	}
	if ref.Name != "Rice Noodles" {
		t.Fatalf("unexpected name %q", ref.Name)
	}
	if ref.Brand != "Thai Kitchen" {
		t.Fatalf("unexpected brand %q", ref.Brand)
	}
	if ref.CaloriesPer100g != 385 {
		t.Fatalf("unexpected calories %v", ref.CaloriesPer100g)
	}
	if ref.ProteinPer100g != 7.7 || ref.CarbsPer100g != 76.9 || ref.FatPer100g != 3.8 {
		t.Fatalf("unexpected macros: %v %v %v", ref.ProteinPer100g, ref.CarbsPer100g, ref.FatPer100g)
	}
	if !ref.FetchedAt.Equal(now) {
		t.Fatalf("expected fetched_at %s, got %s", now, ref.FetchedAt)
	}
	if len(ref.Extra) == 0 {
		t.Fatalf("expected unmapped fields retained in extra")
	}
}

func TestParseProductPayload_NotFound(t *testing.T) {
	if _, err := ParseProductPayload([]byte(`{"status":0,"code":"0"}`), time.Now()); err == nil {
		t.Fatalf("expected error for status 0")
	}
}

func TestParseSearchPayload_SkipsUnusableProducts(t *testing.T) {
	payload := []byte(`{"products":[
		{"code":"1","product_name":"Oats","nutriments":{"energy-kcal_100g":389}},
		{"code":"2","nutriments":{"energy-kcal_100g":100}},
		{"product_name":"No Barcode","nutriments":{"energy-kcal_100g":50}}
	]}`)

	refs, err := ParseSearchPayload(payload, time.Now())
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 usable product, got %d", len(refs))
	}
	if refs[0].Name != "Oats" || refs[0].Barcode != "1" {
		t.Fatalf("unexpected product %+v", refs[0])
	}
}
