package catalog

import (
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// PriceKind discriminates the two price representations found in catalog data.
type PriceKind int

const (
	// PriceUnset means no usable price was present. Resolves to zero.
	PriceUnset PriceKind = iota
	// PriceScalar is a single price for every variant of the product.
	PriceScalar
	// PriceVariants maps variant keys (e.g. sizes) to individual prices.
	PriceVariants
)

// VariantPrice is one entry of a variant-keyed price mapping. Entries keep
// the insertion order of the source document: when no variant is selected,
// the first entry is the product's display price.
type VariantPrice struct {
	Key   string
	Price decimal.Decimal
}

// PriceSpec is the normalized form of a product's price field. Catalog
// documents carry the price either as a JSON scalar ("18.50", 200) or as an
// object keyed by variant ({"small": 200, "large": 400}); some legacy records
// use a separate "pricing" object. All shapes are folded into this one type
// at the ingest boundary so the rest of the system never re-discriminates.
type PriceSpec struct {
	Kind     PriceKind
	Scalar   decimal.Decimal
	Variants []VariantPrice
}

// ParsePriceJSON normalizes a raw price value into a PriceSpec. Parsing is
// fail-open: entries that do not contain a usable number are dropped, and a
// value with no usable number at all yields an unset spec, never an error.
func ParsePriceJSON(raw []byte) PriceSpec {
	if len(raw) == 0 {
		return PriceSpec{}
	}

	d := jx.DecodeBytes(raw)
	switch d.Next() {
	case jx.Number, jx.String:
		if p, ok := decodeAmount(d); ok {
			return PriceSpec{Kind: PriceScalar, Scalar: p}
		}
	case jx.Object:
		var variants []VariantPrice
		// jx iterates object members in document order, which is what makes
		// "first entry wins" resolution possible for variant maps.
		// decodeAmount consumes the value in every branch, so the callback
		// must not skip again: a second consume breaks the decoder mid-object
		// and loses the remaining entries.
		_ = d.Obj(func(d *jx.Decoder, key string) error {
			if p, ok := decodeAmount(d); ok {
				variants = append(variants, VariantPrice{Key: key, Price: p})
			}
			return nil
		})
		if len(variants) > 0 {
			return PriceSpec{Kind: PriceVariants, Variants: variants}
		}
	default:
		// null, bool, array: nothing usable.
	}
	return PriceSpec{}
}

// decodeAmount reads the next JSON value as a non-negative decimal amount.
// Accepts raw numbers and numeric strings; everything else is skipped. The
// value is always consumed exactly once, whether or not it parses.
func decodeAmount(d *jx.Decoder) (decimal.Decimal, bool) {
	switch d.Next() {
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Decimal{}, false
		}
		return parseAmount(string(raw))
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, false
		}
		return parseAmount(s)
	default:
		_ = d.Skip()
		return decimal.Decimal{}, false
	}
}

func parseAmount(s string) (decimal.Decimal, bool) {
	p, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || p.IsNegative() {
		return decimal.Decimal{}, false
	}
	return p, true
}

// Resolve returns the unit price for the given variant key.
//
// Scalar specs ignore the key. Variant specs match the key
// case-insensitively; when the key is empty or not present, the first
// variant entry wins. Unset specs resolve to zero.
func (s PriceSpec) Resolve(variantKey string) decimal.Decimal {
	switch s.Kind {
	case PriceScalar:
		return s.Scalar
	case PriceVariants:
		if variantKey != "" {
			for _, v := range s.Variants {
				if strings.EqualFold(v.Key, variantKey) {
					return v.Price
				}
			}
		}
		if len(s.Variants) > 0 {
			return s.Variants[0].Price
		}
	}
	return decimal.Zero
}

// MarshalJSON re-emits the spec in its source shape: a number for scalar
// prices, an object (in original entry order) for variant prices, and null
// when unset.
func (s PriceSpec) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	switch s.Kind {
	case PriceScalar:
		e.Raw([]byte(s.Scalar.String()))
	case PriceVariants:
		e.ObjStart()
		for _, v := range s.Variants {
			e.FieldStart(v.Key)
			e.Raw([]byte(v.Price.String()))
		}
		e.ObjEnd()
	default:
		e.Null()
	}
	return e.Bytes(), nil
}

// UnmarshalJSON parses any of the accepted price shapes via ParsePriceJSON.
// It never returns an error; malformed input yields an unset spec.
func (s *PriceSpec) UnmarshalJSON(raw []byte) error {
	*s = ParsePriceJSON(raw)
	return nil
}
