package foodref

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/datatypes"
)

// ErrProductNotFound is returned when the provider has no product for a
// barcode.
var ErrProductNotFound = errors.New("foodref: product not found")

// productPayload maps the provider's single-product response.
type productPayload struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Product json.RawMessage `json:"product"`
}

// searchPayload maps the provider's search response.
type searchPayload struct {
	Products []json.RawMessage `json:"products"`
}

// productFields maps the provider fields the catalog cares about.
type productFields struct {
	Code        string `json:"code"`
	ProductName string `json:"product_name"`
	Brands      string `json:"brands"`
	Nutriments  struct {
		EnergyKcal100g float64 `json:"energy-kcal_100g"`
		Proteins100g   float64 `json:"proteins_100g"`
		Carbs100g      float64 `json:"carbohydrates_100g"`
		Fat100g        float64 `json:"fat_100g"`
	} `json:"nutriments"`
}

// ParseProductPayload converts a provider product response into a food
// reference. A status other than found, or a product without a name, is an
// error.
func ParseProductPayload(body []byte, fetchedAt time.Time) (*models.FoodReference, error) {
	var payload productPayload
	if errUnmarshal := json.Unmarshal(body, &payload); errUnmarshal != nil {
		return nil, fmt.Errorf("foodref: parse product payload: %w", errUnmarshal)
	}
	if payload.Status != 1 || len(payload.Product) == 0 {
		return nil, ErrProductNotFound
	}
	ref, err := parseProduct(payload.Product, fetchedAt)
	if err != nil {
		return nil, err
	}
	if ref.Barcode == "" {
		ref.Barcode = strings.TrimSpace(payload.Code)
	}
	if ref.Barcode == "" {
		return nil, fmt.Errorf("foodref: product missing barcode")
	}
	return ref, nil
}

// ParseSearchPayload converts a provider search response into food
// references. Products without a name or barcode are skipped rather than
// failing the whole page.
func ParseSearchPayload(body []byte, fetchedAt time.Time) ([]models.FoodReference, error) {
	var payload searchPayload
	if errUnmarshal := json.Unmarshal(body, &payload); errUnmarshal != nil {
		return nil, fmt.Errorf("foodref: parse search payload: %w", errUnmarshal)
	}
	refs := make([]models.FoodReference, 0, len(payload.Products))
	for _, raw := range payload.Products {
		ref, errParse := parseProduct(raw, fetchedAt)
		if errParse != nil || ref.Barcode == "" {
			continue
		}
		refs = append(refs, *ref)
	}
	return refs, nil
}

func parseProduct(raw json.RawMessage, fetchedAt time.Time) (*models.FoodReference, error) {
	var fields productFields
	if errUnmarshal := json.Unmarshal(raw, &fields); errUnmarshal != nil {
		return nil, fmt.Errorf("foodref: parse product: %w", errUnmarshal)
	}
	name := strings.TrimSpace(fields.ProductName)
	if name == "" {
		return nil, fmt.Errorf("foodref: product missing name")
	}

	extra, errExtra := extraFields(raw)
	if errExtra != nil {
		extra = nil
	}

	return &models.FoodReference{
		Barcode:         strings.TrimSpace(fields.Code),
		Name:            name,
		Brand:           strings.TrimSpace(fields.Brands),
		CaloriesPer100g: fields.Nutriments.EnergyKcal100g,
		ProteinPer100g:  fields.Nutriments.Proteins100g,
		CarbsPer100g:    fields.Nutriments.Carbs100g,
		FatPer100g:      fields.Nutriments.Fat100g,
		Extra:           extra,
		FetchedAt:       fetchedAt.UTC(),
	}, nil
}

// extraFields retains provider fields not mapped to catalog columns.
func extraFields(raw json.RawMessage) (datatypes.JSON, error) {
	var all map[string]json.RawMessage
	if errUnmarshal := json.Unmarshal(raw, &all); errUnmarshal != nil {
		return nil, errUnmarshal
	}
	for _, known := range []string{"code", "product_name", "brands", "nutriments"} {
		delete(all, known)
	}
	if len(all) == 0 {
		return nil, nil
	}
	payload, errMarshal := json.Marshal(all)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(payload), nil
}
