package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// sampleJSON is the static fallback dataset in the backend's wire shape.
// It runs through the same normalization as live data, so the fallback path
// exercises identical code.
//
//go:embed sample_products.json
var sampleJSON []byte

// Sample returns the embedded fallback catalog, normalized. The embedded
// data is validated at init, so Sample cannot fail at runtime.
func Sample(preferredCurrency string) []Product {
	products := make([]Product, len(sampleRecords))
	for i, raw := range sampleRecords {
		products[i] = Normalize(raw, preferredCurrency)
	}
	return products
}

var sampleRecords []RawRecord

func init() {
	if err := json.Unmarshal(sampleJSON, &sampleRecords); err != nil {
		panic(fmt.Sprintf("catalog: embedded sample data is invalid: %v", err))
	}
}
