package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/clock"
	"github.com/mzsawicki/shopery-backend/internal/dispatch"
	"github.com/mzsawicki/shopery-backend/internal/inbox"
	"github.com/mzsawicki/shopery-backend/internal/storage"
)

// Service is the write-side orchestrator. Every mutation runs in a single
// serializable transaction that commits the business row together with its
// inbox event, then hands the event to the dispatcher. Transactions aborted
// by write contention are retried before an error surfaces.
type Service interface {
	AddProduct(ctx context.Context, in ProductWrite) (*ProductDetail, error)
	UpdateProduct(ctx context.Context, guid string, in ProductWrite) (*ProductDetail, error)
	RemoveProduct(ctx context.Context, guid string) error
	GetProduct(ctx context.Context, guid string) (*ProductDetail, error)
	ListProducts(ctx context.Context, pageNumber, pageSize int) (*ProductPage, error)

	AddCategory(ctx context.Context, in CategoryWrite) (*CategoryDetail, error)
	UpdateCategory(ctx context.Context, guid string, in CategoryWrite) (*CategoryDetail, error)
	RemoveCategory(ctx context.Context, guid string) error
	GetCategory(ctx context.Context, guid string) (*CategoryDetail, error)
	ListCategories(ctx context.Context, pageNumber, pageSize int) (*CategoryPage, error)

	AddBrand(ctx context.Context, in BrandWrite) (*BrandDetail, error)
	UpdateBrand(ctx context.Context, guid string, in BrandWrite) (*BrandDetail, error)
	RemoveBrand(ctx context.Context, guid string) error
	GetBrand(ctx context.Context, guid string) (*BrandDetail, error)
	ListBrands(ctx context.Context, pageNumber, pageSize int) (*BrandPage, error)

	AddTag(ctx context.Context, in TagWrite) (*TagDetail, error)
	RemoveTag(ctx context.Context, guid string) error
	ListTags(ctx context.Context, pageNumber, pageSize int) (*TagPage, error)

	UploadProductImage(ctx context.Context, filename string, size int64, r io.Reader) (string, error)
	UploadBrandLogo(ctx context.Context, filename string, size int64, r io.Reader) (string, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type catalogService struct {
	pool       *pgxpool.Pool
	dispatcher dispatch.Dispatcher
	storage    storage.Gateway
	clock      clock.Clock
	logger     *zap.Logger
	tracer     trace.Tracer

	maxUploadBytes int64
}

// NewService wires the orchestrator with its injected collaborators.
func NewService(pool *pgxpool.Pool, d dispatch.Dispatcher, st storage.Gateway, c clock.Clock, l *zap.Logger, maxUploadBytes int64) Service {
	return &catalogService{
		pool:           pool,
		dispatcher:     d,
		storage:        st,
		clock:          c,
		logger:         l,
		tracer:         otel.Tracer("catalog-service"),
		maxUploadBytes: maxUploadBytes,
	}
}

// enqueue hands a committed inbox event to the dispatcher. A broker failure
// is logged, never returned: the event is already durable and the sweeper
// will replay it.
func (s *catalogService) enqueue(ctx context.Context, kind dispatch.Kind, eventGUID string) {
	if err := s.dispatcher.Enqueue(ctx, kind, eventGUID); err != nil {
		s.logger.Error("dispatch failed, sweeper will replay",
			zap.String("kind", string(kind)),
			zap.String("event_guid", eventGUID),
			zap.Error(err),
		)
	}
}

func newGUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("mint guid: %w", err)
	}
	return id.String(), nil
}

func clampPage(pageNumber, pageSize int) (int, int) {
	if pageNumber < 0 {
		pageNumber = 0
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageNumber, pageSize
}

// ── products ──────────────────────────────────────────────────────────────

func (s *catalogService) AddProduct(ctx context.Context, in ProductWrite) (*ProductDetail, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AddProduct")
	defer span.End()

	if err := validateProduct(&in); err != nil {
		return nil, err
	}

	guid, err := newGUID()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var (
		detail    *ProductDetail
		eventGUID string
	)
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		if err := checkProductUniqueness(ctx, repo, &in, ""); err != nil {
			return err
		}
		tags, category, brand, err := resolveReferences(ctx, repo, &in)
		if err != nil {
			return err
		}

		row := productRowFromWrite(&in, guid)
		row.CreatedAt = now
		row.UpdatedAt = now

		if err := repo.InsertProduct(ctx, row); err != nil {
			return err
		}
		if err := repo.ReplaceProductTags(ctx, guid, in.Tags); err != nil {
			return err
		}

		payload := ProductUpdatedPayload{ProductDocument: buildDocument(&row, tags, category, brand)}
		payload.TraceID, payload.SpanID = traceIDs(ctx)

		eventGUID, err = inbox.New(tx).Append(ctx, inbox.EventProductUpdated, payload, now)
		if err != nil {
			return err
		}
		detail = productDetail(&row, tags, category, brand)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, dispatch.KindProductUpdated, eventGUID)

	s.logger.Info("product added",
		zap.String("guid", guid), zap.String("sku", in.SKU))
	return detail, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, guid string, in ProductWrite) (*ProductDetail, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.UpdateProduct")
	defer span.End()

	if err := requireGUID("guid", guid); err != nil {
		return nil, err
	}
	if err := validateProduct(&in); err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var (
		detail    *ProductDetail
		eventGUID string
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		existing, err := repo.GetLiveProduct(ctx, guid)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: product %s", ErrNotFound, guid)
		}

		if err := checkProductUniqueness(ctx, repo, &in, guid); err != nil {
			return err
		}
		tags, category, brand, err := resolveReferences(ctx, repo, &in)
		if err != nil {
			return err
		}

		row := productRowFromWrite(&in, guid)
		row.CreatedAt = existing.CreatedAt
		row.UpdatedAt = now

		updated, err := repo.UpdateProduct(ctx, row)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: product %s", ErrNotFound, guid)
		}
		// Tag set is replaced, not merged.
		if err := repo.ReplaceProductTags(ctx, guid, in.Tags); err != nil {
			return err
		}

		payload := ProductUpdatedPayload{ProductDocument: buildDocument(&row, tags, category, brand)}
		payload.TraceID, payload.SpanID = traceIDs(ctx)

		eventGUID, err = inbox.New(tx).Append(ctx, inbox.EventProductUpdated, payload, now)
		if err != nil {
			return err
		}
		detail = productDetail(&row, tags, category, brand)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, dispatch.KindProductUpdated, eventGUID)

	s.logger.Info("product updated", zap.String("guid", guid))
	return detail, nil
}

func (s *catalogService) RemoveProduct(ctx context.Context, guid string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.RemoveProduct")
	defer span.End()

	if err := requireGUID("guid", guid); err != nil {
		return err
	}
	now := s.clock.Now()

	var eventGUID string
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		removed, err := repo.SoftDeleteProduct(ctx, guid, now)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: product %s", ErrNotFound, guid)
		}

		payload := ProductRemovedPayload{GUID: guid, UpdatedAt: now}
		payload.TraceID, payload.SpanID = traceIDs(ctx)

		eventGUID, err = inbox.New(tx).Append(ctx, inbox.EventProductRemoved, payload, now)
		return err
	})
	if err != nil {
		return err
	}
	s.enqueue(ctx, dispatch.KindProductRemoved, eventGUID)

	s.logger.Info("product removed", zap.String("guid", guid))
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, guid string) (*ProductDetail, error) {
	if err := requireGUID("guid", guid); err != nil {
		return nil, err
	}
	repo := NewRepository(s.pool)

	p, err := repo.GetLiveProduct(ctx, guid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, guid)
	}
	return s.assembleDetail(ctx, repo, p)
}

func (s *catalogService) ListProducts(ctx context.Context, pageNumber, pageSize int) (*ProductPage, error) {
	pageNumber, pageSize = clampPage(pageNumber, pageSize)
	repo := NewRepository(s.pool)

	rows, err := repo.ListLiveProducts(ctx, pageSize, pageNumber*pageSize)
	if err != nil {
		return nil, err
	}
	total, err := repo.CountLiveProducts(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]ProductDetail, 0, len(rows))
	for i := range rows {
		detail, err := s.assembleDetail(ctx, repo, &rows[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *detail)
	}
	return &ProductPage{
		PageMeta: PageMeta{PageNumber: pageNumber, PagesCount: pagesCount(total, pageSize), Total: total},
		Items:    items,
	}, nil
}

// assembleDetail resolves a product row's references for the read path.
func (s *catalogService) assembleDetail(ctx context.Context, repo *Repository, p *ProductRow) (*ProductDetail, error) {
	tags, err := repo.ListProductTags(ctx, p.GUID)
	if err != nil {
		return nil, err
	}
	category, err := repo.GetLiveCategory(ctx, p.CategoryGUID)
	if err != nil {
		return nil, err
	}
	brand, err := repo.GetLiveBrand(ctx, p.BrandGUID)
	if err != nil {
		return nil, err
	}
	if category == nil || brand == nil {
		// References are soft-delete protected; a miss means data damage.
		return nil, fmt.Errorf("product %s references a removed category or brand", p.GUID)
	}
	return productDetail(p, tags, category, brand), nil
}

// checkProductUniqueness runs the courtesy live-uniqueness checks so
// conflicts surface as typed errors before the constraint would fire.
func checkProductUniqueness(ctx context.Context, repo *Repository, in *ProductWrite, excludeGUID string) error {
	for _, probe := range []struct{ field, value string }{
		{"sku", in.SKU},
		{"name_en", in.NameEN},
		{"name_pl", in.NamePL},
	} {
		taken, err := repo.ProductFieldTaken(ctx, probe.field, probe.value, excludeGUID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, probe.field)
		}
	}
	return nil
}

// resolveReferences loads the product's tag, category, and brand targets,
// failing with ReferenceNotFound when any is missing or removed.
func resolveReferences(ctx context.Context, repo *Repository, in *ProductWrite) ([]TagRow, *CategoryRow, *BrandRow, error) {
	tags, err := repo.GetLiveTags(ctx, in.Tags)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(tags) != len(in.Tags) {
		return nil, nil, nil, fmt.Errorf("%w: tags", ErrReferenceNotFound)
	}
	category, err := repo.GetLiveCategory(ctx, in.Category)
	if err != nil {
		return nil, nil, nil, err
	}
	if category == nil {
		return nil, nil, nil, fmt.Errorf("%w: category %s", ErrReferenceNotFound, in.Category)
	}
	brand, err := repo.GetLiveBrand(ctx, in.Brand)
	if err != nil {
		return nil, nil, nil, err
	}
	if brand == nil {
		return nil, nil, nil, fmt.Errorf("%w: brand %s", ErrReferenceNotFound, in.Brand)
	}
	return tags, category, brand, nil
}

func productRowFromWrite(in *ProductWrite, guid string) ProductRow {
	row := ProductRow{
		GUID:          guid,
		SKU:           in.SKU,
		NameEN:        in.NameEN,
		NamePL:        in.NamePL,
		DescriptionEN: in.DescriptionEN,
		DescriptionPL: in.DescriptionPL,
		BasePriceUSD:  in.BasePriceUSD,
		BasePricePLN:  in.BasePricePLN,
		Discount:      in.Discount,
		Quantity:      in.Quantity,
		Weight:        in.Weight,
		ColorEN:       in.ColorEN,
		ColorPL:       in.ColorPL,
		CategoryGUID:  in.Category,
		BrandGUID:     in.Brand,
	}
	if in.ImageURL != "" {
		row.ImageURL = &in.ImageURL
	}
	return row
}

func productDetail(p *ProductRow, tags []TagRow, category *CategoryRow, brand *BrandRow) *ProductDetail {
	tagDetails := make([]TagDetail, len(tags))
	for i, t := range tags {
		tagDetails[i] = tagDetail(&t)
	}
	detail := &ProductDetail{
		GUID:               p.GUID,
		SKU:                p.SKU,
		NameEN:             p.NameEN,
		NamePL:             p.NamePL,
		DescriptionEN:      p.DescriptionEN,
		DescriptionPL:      p.DescriptionPL,
		BasePriceUSD:       p.BasePriceUSD.StringFixed(2),
		BasePricePLN:       p.BasePricePLN.StringFixed(2),
		DiscountedPriceUSD: discountedPrice(p.BasePriceUSD, p.Discount).StringFixed(2),
		DiscountedPricePLN: discountedPrice(p.BasePricePLN, p.Discount).StringFixed(2),
		Discount:           p.Discount,
		Quantity:           p.Quantity.String(),
		Weight:             p.Weight,
		ColorEN:            p.ColorEN,
		ColorPL:            p.ColorPL,
		Tags:               tagDetails,
		Category:           categoryDetail(category),
		Brand:              brandDetail(brand),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.ImageURL != nil {
		detail.ImageURL = *p.ImageURL
	}
	return detail
}

func tagDetail(t *TagRow) TagDetail {
	return TagDetail{GUID: t.GUID, EN: t.EN, PL: t.PL, CreatedAt: t.CreatedAt}
}

func categoryDetail(c *CategoryRow) CategoryDetail {
	return CategoryDetail{GUID: c.GUID, NameEN: c.NameEN, NamePL: c.NamePL, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func brandDetail(b *BrandRow) BrandDetail {
	detail := BrandDetail{GUID: b.GUID, Name: b.Name, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt}
	if b.LogoURL != nil {
		detail.LogoURL = *b.LogoURL
	}
	return detail
}
