package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Filter narrows an offer query. All fields are optional; the zero Filter
// matches everything.
type Filter struct {
	// Text is matched full-text against names and descriptions.
	Text string
	// Category, Brand, and Tag are exact matches against either language.
	Category string
	Brand    string
	Tag      string
	// Price bounds apply to discounted_price_usd.
	PriceMin *float64
	PriceMax *float64
}

// Page is one page of offer results.
type Page struct {
	PageNumber int               `json:"page_number"`
	PagesCount int               `json:"pages_count"`
	Total      int               `json:"total"`
	Items      []ProductDocument `json:"items"`
}

// Service serves paginated product queries from the search index.
type Service struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewService wraps a connected Redis client.
func NewService(r *redis.Client, l *zap.Logger) *Service {
	return &Service{redis: r, logger: l}
}

// Search runs a filtered, paginated query. pageNumber is zero-based;
// pageSize is clamped to [1,100]. Results sort by discounted USD price
// ascending after relevance.
func (s *Service) Search(ctx context.Context, pageNumber, pageSize int, filter Filter) (*Page, error) {
	if pageNumber < 0 {
		pageNumber = 0
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	query := buildQuery(filter)
	res, err := s.redis.FTSearchWithArgs(ctx, IndexName, query, &redis.FTSearchOptions{
		SortBy:      []redis.FTSearchSortBy{{FieldName: "discounted_price_usd", Asc: true}},
		LimitOffset: pageNumber * pageSize,
		Limit:       pageSize,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("FT.SEARCH %q: %w", query, err)
	}

	items := make([]ProductDocument, 0, len(res.Docs))
	for _, doc := range res.Docs {
		raw, ok := doc.Fields["$"]
		if !ok {
			continue
		}
		var item ProductDocument
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			// A corrupt document should not take the whole page down.
			s.logger.Warn("skipping undecodable search hit",
				zap.String("key", doc.ID), zap.Error(err))
			continue
		}
		items = append(items, item)
	}

	total := int(res.Total)
	return &Page{
		PageNumber: pageNumber,
		PagesCount: pagesCount(total, pageSize),
		Total:      total,
		Items:      items,
	}, nil
}

func pagesCount(total, pageSize int) int {
	return (total + pageSize - 1) / pageSize
}

// buildQuery renders a RediSearch query string for the filter. An empty
// filter matches all documents.
func buildQuery(f Filter) string {
	var clauses []string

	if text := strings.TrimSpace(f.Text); text != "" {
		fields := "@name_en|name_pl|description_en|description_pl"
		clauses = append(clauses, fmt.Sprintf("%s:(%s)", fields, escapeText(text)))
	}
	if f.Category != "" {
		clauses = append(clauses, orTags([]string{"category_name_en", "category_name_pl"}, f.Category))
	}
	if f.Brand != "" {
		clauses = append(clauses, fmt.Sprintf("@brand_name:{%s}", escapeTag(f.Brand)))
	}
	if f.Tag != "" {
		clauses = append(clauses, orTags([]string{"tags_en", "tags_pl"}, f.Tag))
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		min, max := "-inf", "+inf"
		if f.PriceMin != nil {
			min = strconv.FormatFloat(*f.PriceMin, 'f', -1, 64)
		}
		if f.PriceMax != nil {
			max = strconv.FormatFloat(*f.PriceMax, 'f', -1, 64)
		}
		clauses = append(clauses, fmt.Sprintf("@discounted_price_usd:[%s %s]", min, max))
	}

	if len(clauses) == 0 {
		return "*"
	}
	return strings.Join(clauses, " ")
}

// orTags matches the value against any of the tag fields, so callers can
// filter in either language.
func orTags(fields []string, value string) string {
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("@%s:{%s}", field, escapeTag(value))
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// escapeTag backslash-escapes the characters RediSearch treats as syntax
// inside a tag match.
func escapeTag(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(` ,.<>{}[]"':;!@#$%^&*()-+=~|/\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeText strips query syntax from free text, keeping word characters so
// the full-text match still works.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`@{}[]"':;!^*()+=~|/\`, r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
