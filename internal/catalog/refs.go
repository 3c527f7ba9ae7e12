package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/inbox"
)

// Category, brand, and tag operations. Category and tag mutations record
// reserved inbox events (no projector consumes them yet); removals enforce
// referential integrity against live products.

// ── categories ────────────────────────────────────────────────────────────

func (s *catalogService) AddCategory(ctx context.Context, in CategoryWrite) (*CategoryDetail, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AddCategory")
	defer span.End()

	if err := validateCategory(&in); err != nil {
		return nil, err
	}
	guid, err := newGUID()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	row := CategoryRow{GUID: guid, NameEN: in.NameEN, NamePL: in.NamePL, CreatedAt: now, UpdatedAt: now}
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		field, taken, err := repo.CategoryNameTaken(ctx, in.NameEN, in.NamePL, "")
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, field)
		}
		return repo.InsertCategory(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("category added", zap.String("guid", guid), zap.String("name_en", in.NameEN))
	detail := categoryDetail(&row)
	return &detail, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, guid string, in CategoryWrite) (*CategoryDetail, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.UpdateCategory")
	defer span.End()

	if err := requireGUID("guid", guid); err != nil {
		return nil, err
	}
	if err := validateCategory(&in); err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var createdAt = now
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		existing, err := repo.GetLiveCategory(ctx, guid)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: category %s", ErrNotFound, guid)
		}
		createdAt = existing.CreatedAt

		field, taken, err := repo.CategoryNameTaken(ctx, in.NameEN, in.NamePL, guid)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, field)
		}

		if _, err := repo.UpdateCategory(ctx, guid, in.NameEN, in.NamePL, now); err != nil {
			return err
		}

		// Reserved event; embedded category snapshots in product documents
		// are refreshed only when the product itself is next written.
		_, err = inbox.New(tx).Append(ctx, inbox.EventCategoryUpdated,
			ReferencePayload{GUID: guid, UpdatedAt: now}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("category updated", zap.String("guid", guid))
	return &CategoryDetail{GUID: guid, NameEN: in.NameEN, NamePL: in.NamePL, CreatedAt: createdAt, UpdatedAt: now}, nil
}

func (s *catalogService) RemoveCategory(ctx context.Context, guid string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.RemoveCategory")
	defer span.End()

	if err := requireGUID("guid", guid); err != nil {
		return err
	}
	now := s.clock.Now()

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		inUse, err := repo.CategoryInUse(ctx, guid)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: category is referenced by live products", ErrInUse)
		}

		removed, err := repo.SoftDeleteCategory(ctx, guid, now)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: category %s", ErrNotFound, guid)
		}

		_, err = inbox.New(tx).Append(ctx, inbox.EventCategoryRemoved,
			ReferencePayload{GUID: guid, UpdatedAt: now}, now)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("category removed", zap.String("guid", guid))
	return nil
}

func (s *catalogService) GetCategory(ctx context.Context, guid string) (*CategoryDetail, error) {
	if err := requireGUID("guid", guid); err != nil {
		return nil, err
	}
	c, err := NewRepository(s.pool).GetLiveCategory(ctx, guid)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: category %s", ErrNotFound, guid)
	}
	detail := categoryDetail(c)
	return &detail, nil
}

func (s *catalogService) ListCategories(ctx context.Context, pageNumber, pageSize int) (*CategoryPage, error) {
	pageNumber, pageSize = clampPage(pageNumber, pageSize)
	repo := NewRepository(s.pool)

	rows, err := repo.ListLiveCategories(ctx, pageSize, pageNumber*pageSize)
	if err != nil {
		return nil, err
	}
	total, err := repo.CountLiveCategories(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]CategoryDetail, len(rows))
	for i := range rows {
		items[i] = categoryDetail(&rows[i])
	}
	return &CategoryPage{
		PageMeta: PageMeta{PageNumber: pageNumber, PagesCount: pagesCount(total, pageSize), Total: total},
		Items:    items,
	}, nil
}

// ── brands ────────────────────────────────────────────────────────────────

func (s *catalogService) AddBrand(ctx context.Context, in BrandWrite) (*BrandDetail, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AddBrand")
	defer span.End()

	if err := validateBrand(&in); err != nil {
		return nil, err
	}
	guid, err := newGUID()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	row := BrandRow{GUID: guid, Name: in.Name, CreatedAt: now, UpdatedAt: now}
	if in.LogoURL != "" {
		row.LogoURL = &in.LogoURL
	}
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		taken, err := repo.BrandNameTaken(ctx, in.Name, "")
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: name", ErrAlreadyExists)
		}
		return repo.InsertBrand(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("brand added", zap.String("guid", guid), zap.String("name", in.Name))
	detail := brandDetail(&row)
	return &detail, nil
}

func (s *catalogService) UpdateBrand(ctx context.Context, guid string, in BrandWrite) (*BrandDetail, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.UpdateBrand")
	defer span.End()

	if err := requireGUID("guid", guid); err != nil {
		return nil, err
	}
	if err := validateBrand(&in); err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var createdAt = now
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		existing, err := repo.GetLiveBrand(ctx, guid)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: brand %s", ErrNotFound, guid)
		}
		createdAt = existing.CreatedAt

		taken, err := repo.BrandNameTaken(ctx, in.Name, guid)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: name", ErrAlreadyExists)
		}

		var logoURL *string
		if in.LogoURL != "" {
			logoURL = &in.LogoURL
		}
		_, err = repo.UpdateBrand(ctx, guid, in.Name, logoURL, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("brand updated", zap.String("guid", guid))
	return &BrandDetail{GUID: guid, Name: in.Name, LogoURL: in.LogoURL, CreatedAt: createdAt, UpdatedAt: now}, nil
}

func (s *catalogService) RemoveBrand(ctx context.Context, guid string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.RemoveBrand")
	defer span.End()

	if err := requireGUID("guid", guid); err != nil {
		return err
	}
	now := s.clock.Now()

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		inUse, err := repo.BrandInUse(ctx, guid)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: brand is referenced by live products", ErrInUse)
		}

		removed, err := repo.SoftDeleteBrand(ctx, guid, now)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: brand %s", ErrNotFound, guid)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("brand removed", zap.String("guid", guid))
	return nil
}

func (s *catalogService) GetBrand(ctx context.Context, guid string) (*BrandDetail, error) {
	if err := requireGUID("guid", guid); err != nil {
		return nil, err
	}
	b, err := NewRepository(s.pool).GetLiveBrand(ctx, guid)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: brand %s", ErrNotFound, guid)
	}
	detail := brandDetail(b)
	return &detail, nil
}

func (s *catalogService) ListBrands(ctx context.Context, pageNumber, pageSize int) (*BrandPage, error) {
	pageNumber, pageSize = clampPage(pageNumber, pageSize)
	repo := NewRepository(s.pool)

	rows, err := repo.ListLiveBrands(ctx, pageSize, pageNumber*pageSize)
	if err != nil {
		return nil, err
	}
	total, err := repo.CountLiveBrands(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]BrandDetail, len(rows))
	for i := range rows {
		items[i] = brandDetail(&rows[i])
	}
	return &BrandPage{
		PageMeta: PageMeta{PageNumber: pageNumber, PagesCount: pagesCount(total, pageSize), Total: total},
		Items:    items,
	}, nil
}

// ── tags ──────────────────────────────────────────────────────────────────

func (s *catalogService) AddTag(ctx context.Context, in TagWrite) (*TagDetail, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AddTag")
	defer span.End()

	if err := validateTag(&in); err != nil {
		return nil, err
	}
	guid, err := newGUID()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	row := TagRow{GUID: guid, EN: in.EN, PL: in.PL, CreatedAt: now}
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		field, taken, err := repo.TagNameTaken(ctx, in.EN, in.PL)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, field)
		}
		return repo.InsertTag(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag added", zap.String("guid", guid), zap.String("en", in.EN))
	detail := tagDetail(&row)
	return &detail, nil
}

func (s *catalogService) RemoveTag(ctx context.Context, guid string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.RemoveTag")
	defer span.End()

	if err := requireGUID("guid", guid); err != nil {
		return err
	}
	now := s.clock.Now()

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		repo := NewRepository(tx)

		inUse, err := repo.TagInUse(ctx, guid)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: tag is carried by live products", ErrInUse)
		}

		removed, err := repo.SoftDeleteTag(ctx, guid, now)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: tag %s", ErrNotFound, guid)
		}

		_, err = inbox.New(tx).Append(ctx, inbox.EventTagRemoved,
			ReferencePayload{GUID: guid, UpdatedAt: now}, now)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("tag removed", zap.String("guid", guid))
	return nil
}

func (s *catalogService) ListTags(ctx context.Context, pageNumber, pageSize int) (*TagPage, error) {
	pageNumber, pageSize = clampPage(pageNumber, pageSize)
	repo := NewRepository(s.pool)

	rows, err := repo.ListLiveTags(ctx, pageSize, pageNumber*pageSize)
	if err != nil {
		return nil, err
	}
	total, err := repo.CountLiveTags(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]TagDetail, len(rows))
	for i := range rows {
		items[i] = tagDetail(&rows[i])
	}
	return &TagPage{
		PageMeta: PageMeta{PageNumber: pageNumber, PagesCount: pagesCount(total, pageSize), Total: total},
		Items:    items,
	}, nil
}
