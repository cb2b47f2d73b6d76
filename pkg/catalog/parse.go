package catalog

import (
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/gtuazon18/rxn3d-core/pkg/logger"
)

// ParseBrands converts a raw catalog payload into typed brands. The upstream
// service is loose about shape (numbers as strings, absent fields, sibling
// junk keys), so ingestion validates here and internal logic only ever sees
// the typed form. Entries missing an id or a name are dropped with a warning
// rather than failing the whole snapshot.
//
// Accepted shapes: a top-level array of brands, or an object with a "brands"
// field holding that array.
func ParseBrands(payload []byte, log logger.Logger) ([]Brand, error) {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("catalog payload is not valid JSON")
	}

	root := gjson.ParseBytes(payload)
	list := root
	if root.IsObject() {
		list = root.Get("brands")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("catalog payload has no brand list")
	}

	var brands []Brand
	list.ForEach(func(_, raw gjson.Result) bool {
		id := raw.Get("id")
		name := raw.Get("name")
		if !id.Exists() || id.Int() == 0 || name.String() == "" {
			log.Warn("dropping catalog brand with missing id or name",
				zap.String("entry", raw.Raw))
			return true
		}

		b := Brand{
			ID:         id.Int(),
			Name:       name.String(),
			SystemName: raw.Get("systemName").String(),
		}
		raw.Get("variants").ForEach(func(_, rv gjson.Result) bool {
			vid := rv.Get("id")
			vname := rv.Get("name")
			if !vid.Exists() || vid.Int() == 0 || vname.String() == "" {
				log.Warn("dropping catalog variant with missing id or name",
					zap.Int64("brand_id", b.ID),
					zap.String("entry", rv.Raw))
				return true
			}
			b.Variants = append(b.Variants, Variant{
				ID:       vid.Int(),
				Name:     vname.String(),
				Sequence: int(rv.Get("sequence").Int()),
				Price:    rv.Get("price").Float(),
			})
			return true
		})
		brands = append(brands, b)
		return true
	})

	return brands, nil
}
