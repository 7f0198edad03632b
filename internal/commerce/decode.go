package commerce

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/catalog"
)

// decodeCatalog parses a `{"products": [...]}` payload. Individual records
// that fail structural decoding become degraded substitutes carrying whatever
// identifier and title were recovered; the batch never shrinks. Only a
// malformed envelope fails the whole decode.
func decodeCatalog(data []byte, preferredCurrency string) ([]catalog.Product, error) {
	d := jx.DecodeBytes(data)

	var products []catalog.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "products" {
			return d.Skip()
		}
		if d.Next() != jx.Array {
			return errors.New("products: expected array")
		}
		return d.Arr(func(d *jx.Decoder) error {
			// Capture the element first so a mid-record failure cannot
			// desync the outer stream.
			elem, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "read record")
			}

			raw, err := decodeRecord(jx.DecodeBytes(elem))
			if err != nil {
				products = append(products, catalog.Degraded(raw.ID, raw.Title))
				return nil
			}
			products = append(products, catalog.Normalize(raw, preferredCurrency))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog payload")
	}

	return products, nil
}

// decodeRecord tolerantly decodes one raw product record. Scalar fields of
// the wrong type are coerced or zeroed; structurally wrong composite fields
// (a non-array variant list, a non-object record) abort the record. The
// partially filled record is returned alongside the error so the caller can
// build a degraded substitute with the recovered identity.
func decodeRecord(d *jx.Decoder) (catalog.RawRecord, error) {
	var rec catalog.RawRecord

	if d.Next() != jx.Object {
		return rec, errors.New("record: expected object")
	}

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return assignString(d, &rec.ID)
		case "title":
			return assignString(d, &rec.Title)
		case "description":
			return assignString(d, &rec.Description)
		case "thumbnail":
			return assignString(d, &rec.Thumbnail)
		case "images":
			images, err := decodeImages(d)
			rec.Images = images
			return err
		case "variants":
			variants, err := decodeVariants(d)
			rec.Variants = variants
			return err
		case "options":
			options, err := decodeOptions(d)
			rec.Options = options
			return err
		case "metadata":
			meta, err := decodeMetadata(d)
			rec.Metadata = meta
			return err
		case "collection":
			title, err := decodeCollection(d)
			rec.Collection = title
			return err
		case "tags":
			tags, err := decodeTags(d)
			rec.Tags = tags
			return err
		case "created_at":
			return assignString(d, &rec.CreatedAt)
		default:
			return d.Skip()
		}
	})

	return rec, err
}

func decodeImages(d *jx.Decoder) ([]string, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
	default:
		return nil, errors.New("images: expected array")
	}

	var images []string
	err := d.Arr(func(d *jx.Decoder) error {
		// Either a bare URL string or an object with a url field.
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			images = append(images, s)
			return nil
		case jx.Object:
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "url" {
					return d.Skip()
				}
				var url string
				if err := assignString(d, &url); err != nil {
					return err
				}
				images = append(images, url)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return images, err
}

func decodeVariants(d *jx.Decoder) ([]catalog.RawVariant, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
	default:
		return nil, errors.New("variants: expected array")
	}

	var variants []catalog.RawVariant
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return errors.New("variant: expected object")
		}
		var v catalog.RawVariant
		err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				return assignString(d, &v.ID)
			case "title":
				return assignString(d, &v.Title)
			case "prices":
				prices, err := decodePrices(d)
				v.Prices = prices
				return err
			default:
				return d.Skip()
			}
		})
		if err != nil {
			return err
		}
		variants = append(variants, v)
		return nil
	})
	return variants, err
}

func decodePrices(d *jx.Decoder) ([]catalog.RawPrice, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
	default:
		return nil, errors.New("prices: expected array")
	}

	var prices []catalog.RawPrice
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return errors.New("price: expected object")
		}
		var p catalog.RawPrice
		err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "amount":
				amount, err := readInt64(d)
				p.Amount = amount
				return err
			case "currency_code":
				return assignString(d, &p.Currency)
			default:
				return d.Skip()
			}
		})
		if err != nil {
			return err
		}
		prices = append(prices, p)
		return nil
	})
	return prices, err
}

// decodeTags accepts bare tag strings or objects carrying a value field.
func decodeTags(d *jx.Decoder) ([]string, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
	default:
		return nil, d.Skip()
	}

	var tags []string
	err := d.Arr(func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			tags = append(tags, s)
			return nil
		case jx.Object:
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "value" {
					return d.Skip()
				}
				var v string
				if err := assignString(d, &v); err != nil {
					return err
				}
				tags = append(tags, v)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return tags, err
}

func decodeOptions(d *jx.Decoder) ([]catalog.RawOption, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
	default:
		return nil, errors.New("options: expected array")
	}

	var options []catalog.RawOption
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return errors.New("option: expected object")
		}
		var opt catalog.RawOption
		err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "name", "title":
				return assignString(d, &opt.Name)
			case "values":
				if d.Next() != jx.Array {
					return errors.New("option values: expected array")
				}
				return d.Arr(func(d *jx.Decoder) error {
					var v string
					if err := assignString(d, &v); err != nil {
						return err
					}
					opt.Values = append(opt.Values, v)
					return nil
				})
			default:
				return d.Skip()
			}
		})
		if err != nil {
			return err
		}
		options = append(options, opt)
		return nil
	})
	return options, err
}

// decodeMetadata flattens the metadata bag to string values. Scalars are
// stringified, nested structures are dropped: the normalizer only reads a
// closed set of stringly-typed keys.
func decodeMetadata(d *jx.Decoder) (map[string]string, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Object:
	default:
		return nil, d.Skip()
	}

	meta := make(map[string]string)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch d.Next() {
		case jx.Object, jx.Array:
			return d.Skip()
		default:
			var v string
			if err := assignString(d, &v); err != nil {
				return err
			}
			meta[key] = v
			return nil
		}
	})
	return meta, err
}

// decodeCollection accepts either a bare title string or an object carrying
// a title field.
func decodeCollection(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Null:
		return "", d.Null()
	case jx.Object:
		var title string
		err := d.Obj(func(d *jx.Decoder, key string) error {
			if key != "title" {
				return d.Skip()
			}
			return assignString(d, &title)
		})
		return title, err
	default:
		return "", d.Skip()
	}
}

// assignString coerces a scalar JSON value to a string. Null and composite
// values become the empty string.
func assignString(d *jx.Decoder, dst *string) error {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		*dst = s
		return nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		*dst = n.String()
		return nil
	case jx.Bool:
		b, err := d.Bool()
		if err != nil {
			return err
		}
		*dst = strconv.FormatBool(b)
		return nil
	case jx.Null:
		*dst = ""
		return d.Null()
	default:
		*dst = ""
		return d.Skip()
	}
}

// readInt64 reads a minor-unit amount, tolerating float and numeric-string
// encodings. Unreadable values become zero rather than failing the record.
func readInt64(d *jx.Decoder) (int64, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return 0, err
		}
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, nil
		}
		return i, nil
	case jx.Null:
		return 0, d.Null()
	default:
		return 0, d.Skip()
	}
}
