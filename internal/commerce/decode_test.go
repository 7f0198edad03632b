package commerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCatalog_WellFormedRecord(t *testing.T) {
	payload := []byte(`{
		"products": [
			{
				"id": "prod_1",
				"title": "Classic Tee",
				"description": "Cotton t-shirt",
				"thumbnail": "https://cdn.example.com/tee.jpg",
				"variants": [
					{
						"id": "var_1",
						"title": "Small",
						"prices": [
							{"amount": 50000, "currency_code": "eur"},
							{"amount": 29999, "currency_code": "usd"}
						]
					}
				],
				"options": [
					{"name": "Color", "values": ["Black", "White"]},
					{"name": "Size", "values": ["S", "M"]}
				],
				"metadata": {"rating": "4.5", "review_count": "120"},
				"collection": {"title": "Apparel"},
				"tags": ["featured"],
				"created_at": "2025-11-01T00:00:00Z"
			}
		]
	}`)

	products, err := decodeCatalog(payload, "usd")
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "prod_1", p.ID)
	assert.Equal(t, "Classic Tee", p.Name)
	assert.False(t, p.Degraded)
	assert.Equal(t, "299.99", p.Price.StringFixed(2), "preferred currency wins over list order")
	assert.Equal(t, "Apparel", p.Category)
	assert.Equal(t, []string{"S", "M"}, p.Sizes)
	require.Len(t, p.Colors, 2)
	assert.Equal(t, "#000000", p.Colors[0].Hex)
	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.5, *p.Rating, 0.001)
	assert.Equal(t, []string{"featured"}, p.Tags)
}

func TestDecodeCatalog_TagShapes(t *testing.T) {
	// Tags arrive either as bare strings or as objects with a value field;
	// anything else in the list is skipped.
	payload := []byte(`{
		"products": [
			{"id": "p1", "tags": ["featured", {"id": "t2", "value": "new"}, 7]}
		]
	}`)

	products, err := decodeCatalog(payload, "usd")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, []string{"featured", "new"}, products[0].Tags)
}

func TestDecodeCatalog_MalformedRecordBecomesDegraded(t *testing.T) {
	// The second record carries a structurally wrong variants field. It must
	// be replaced by a degraded substitute, not dropped, and must not poison
	// its neighbours.
	payload := []byte(`{
		"products": [
			{"id": "prod_ok", "title": "Fine Product", "variants": []},
			{"id": "prod_bad", "title": "Broken Product", "variants": "not-an-array"},
			{"id": "prod_ok2", "title": "Also Fine", "variants": []}
		]
	}`)

	products, err := decodeCatalog(payload, "usd")
	require.NoError(t, err)
	require.Len(t, products, 3, "the batch never shrinks")

	assert.False(t, products[0].Degraded)
	assert.True(t, products[1].Degraded)
	assert.Equal(t, "prod_bad", products[1].ID, "recovered identity survives the failure")
	assert.Equal(t, "Broken Product", products[1].Name)
	assert.True(t, products[1].Price.IsZero())
	assert.False(t, products[2].Degraded)
}

func TestDecodeCatalog_ScalarCoercions(t *testing.T) {
	// Wrong-typed scalar fields are coerced instead of failing the record.
	payload := []byte(`{
		"products": [
			{
				"id": 42,
				"title": null,
				"collection": "Footwear",
				"variants": [
					{"id": "v1", "prices": [{"amount": "1999", "currency_code": "usd"}]}
				]
			}
		]
	}`)

	products, err := decodeCatalog(payload, "usd")
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.False(t, p.Degraded)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "Footwear", p.Category)
	assert.Equal(t, "19.99", p.Price.StringFixed(2), "numeric-string amounts are tolerated")
}

func TestDecodeCatalog_MalformedEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `][`},
		{"products not an array", `{"products": {"oops": true}}`},
		{"truncated", `{"products": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCatalog([]byte(tt.payload), "usd")
			assert.Error(t, err)
		})
	}
}

func TestDecodeCatalog_UnknownKeysSkipped(t *testing.T) {
	payload := []byte(`{
		"count": 2,
		"products": [
			{"id": "p1", "title": "Thing", "handle": "thing", "weight": 200}
		],
		"offset": 0
	}`)

	products, err := decodeCatalog(payload, "usd")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
}
