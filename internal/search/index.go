package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EnsureIndex idempotently creates the product search index. An index that
// already exists is left untouched.
//
// Field choices mirror how the offer endpoint queries: full-text over names
// and descriptions, exact-match tags for the filterable attributes, numeric
// sortable fields for the price range and the default sort key.
func (s *Store) EnsureIndex(ctx context.Context) error {
	err := s.redis.FTCreate(ctx, IndexName,
		&redis.FTCreateOptions{
			OnJSON: true,
			Prefix: []interface{}{KeyPrefix},
		},
		&redis.FieldSchema{FieldName: "$.guid", As: "guid", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "$.sku", As: "sku", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "$.name_en", As: "name_en", FieldType: redis.SearchFieldTypeText, Sortable: true},
		&redis.FieldSchema{FieldName: "$.name_pl", As: "name_pl", FieldType: redis.SearchFieldTypeText, Sortable: true},
		&redis.FieldSchema{FieldName: "$.description_en", As: "description_en", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "$.description_pl", As: "description_pl", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "$.color_en", As: "color_en", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "$.color_pl", As: "color_pl", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "$.tags_en[*]", As: "tags_en", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "$.tags_pl[*]", As: "tags_pl", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "$.category_name_en", As: "category_name_en", FieldType: redis.SearchFieldTypeTag, Sortable: true},
		&redis.FieldSchema{FieldName: "$.category_name_pl", As: "category_name_pl", FieldType: redis.SearchFieldTypeTag, Sortable: true},
		&redis.FieldSchema{FieldName: "$.brand_name", As: "brand_name", FieldType: redis.SearchFieldTypeTag, Sortable: true},
		&redis.FieldSchema{FieldName: "$.discounted_price_usd", As: "discounted_price_usd", FieldType: redis.SearchFieldTypeNumeric, Sortable: true},
		&redis.FieldSchema{FieldName: "$.discounted_price_pln", As: "discounted_price_pln", FieldType: redis.SearchFieldTypeNumeric, Sortable: true},
	).Err()
	if err != nil {
		if strings.Contains(err.Error(), "Index already exists") {
			return nil
		}
		return fmt.Errorf("FT.CREATE %s: %w", IndexName, err)
	}

	s.logger.Info("created search index", zap.String("index", IndexName))
	return nil
}
