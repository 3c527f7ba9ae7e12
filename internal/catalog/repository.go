package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same queries
// run inside the orchestrator's transaction and on the bare pool for reads.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository holds the SQL for the products schema.
type Repository struct {
	db DBTX
}

// NewRepository wraps a pool or an open transaction.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// ── rows ──────────────────────────────────────────────────────────────────

// BrandRow mirrors products.brands.
type BrandRow struct {
	GUID      string
	Name      string
	LogoURL   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryRow mirrors products.categories.
type CategoryRow struct {
	GUID      string
	NameEN    string
	NamePL    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TagRow mirrors products.tags.
type TagRow struct {
	GUID      string
	EN        string
	PL        string
	CreatedAt time.Time
}

// ProductRow mirrors products.products. Monetary columns travel as text and
// are parsed into decimals so no float arithmetic ever touches a price.
type ProductRow struct {
	GUID          string
	SKU           string
	NameEN        string
	NamePL        string
	ImageURL      *string
	DescriptionEN string
	DescriptionPL string
	BasePriceUSD  decimal.Decimal
	BasePricePLN  decimal.Decimal
	Discount      *int
	Quantity      decimal.Decimal
	Weight        int
	ColorEN       string
	ColorPL       string
	CategoryGUID  string
	BrandGUID     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ── brands ────────────────────────────────────────────────────────────────

func (r *Repository) InsertBrand(ctx context.Context, b BrandRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO products.brands (guid, name, logo_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.GUID, b.Name, b.LogoURL, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert brand: %w", err)
	}
	return nil
}

func (r *Repository) UpdateBrand(ctx context.Context, guid, name string, logoURL *string, updatedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products.brands SET name = $2, logo_url = $3, updated_at = $4
		 WHERE guid = $1 AND removed_at IS NULL`,
		guid, name, logoURL, updatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update brand: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SoftDeleteBrand(ctx context.Context, guid string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products.brands SET removed_at = $2
		 WHERE guid = $1 AND removed_at IS NULL`,
		guid, at,
	)
	if err != nil {
		return false, fmt.Errorf("soft-delete brand: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) GetLiveBrand(ctx context.Context, guid string) (*BrandRow, error) {
	row := r.db.QueryRow(ctx,
		`SELECT guid, name, logo_url, created_at, updated_at
		 FROM products.brands WHERE guid = $1 AND removed_at IS NULL`,
		guid,
	)
	b, err := scanBrand(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return b, nil
}

func (r *Repository) BrandNameTaken(ctx context.Context, name, excludeGUID string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM products.brands
			WHERE name = $1 AND removed_at IS NULL AND guid::text <> $2
		)`, name, excludeGUID)
}

func (r *Repository) ListLiveBrands(ctx context.Context, limit, offset int) ([]BrandRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT guid, name, logo_url, created_at, updated_at
		 FROM products.brands WHERE removed_at IS NULL
		 ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	var brands []BrandRow
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, *b)
	}
	return brands, rows.Err()
}

func (r *Repository) CountLiveBrands(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM products.brands WHERE removed_at IS NULL`)
}

// BrandInUse reports whether any live product references the brand.
func (r *Repository) BrandInUse(ctx context.Context, guid string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM products.products
			WHERE brand_guid = $1 AND removed_at IS NULL
		)`, guid)
}

// ── categories ────────────────────────────────────────────────────────────

func (r *Repository) InsertCategory(ctx context.Context, c CategoryRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO products.categories (guid, name_en, name_pl, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.GUID, c.NameEN, c.NamePL, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) UpdateCategory(ctx context.Context, guid, nameEN, namePL string, updatedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products.categories SET name_en = $2, name_pl = $3, updated_at = $4
		 WHERE guid = $1 AND removed_at IS NULL`,
		guid, nameEN, namePL, updatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update category: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SoftDeleteCategory(ctx context.Context, guid string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products.categories SET removed_at = $2
		 WHERE guid = $1 AND removed_at IS NULL`,
		guid, at,
	)
	if err != nil {
		return false, fmt.Errorf("soft-delete category: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) GetLiveCategory(ctx context.Context, guid string) (*CategoryRow, error) {
	row := r.db.QueryRow(ctx,
		`SELECT guid, name_en, name_pl, created_at, updated_at
		 FROM products.categories WHERE guid = $1 AND removed_at IS NULL`,
		guid,
	)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *Repository) CategoryNameTaken(ctx context.Context, nameEN, namePL, excludeGUID string) (field string, taken bool, err error) {
	takenEN, err := r.exists(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM products.categories
			WHERE name_en = $1 AND removed_at IS NULL AND guid::text <> $2
		)`, nameEN, excludeGUID)
	if err != nil {
		return "", false, err
	}
	if takenEN {
		return "name_en", true, nil
	}
	takenPL, err := r.exists(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM products.categories
			WHERE name_pl = $1 AND removed_at IS NULL AND guid::text <> $2
		)`, namePL, excludeGUID)
	if err != nil {
		return "", false, err
	}
	if takenPL {
		return "name_pl", true, nil
	}
	return "", false, nil
}

func (r *Repository) ListLiveCategories(ctx context.Context, limit, offset int) ([]CategoryRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT guid, name_en, name_pl, created_at, updated_at
		 FROM products.categories WHERE removed_at IS NULL
		 ORDER BY name_en LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []CategoryRow
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *Repository) CountLiveCategories(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM products.categories WHERE removed_at IS NULL`)
}

// CategoryInUse reports whether any live product references the category.
func (r *Repository) CategoryInUse(ctx context.Context, guid string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM products.products
			WHERE category_guid = $1 AND removed_at IS NULL
		)`, guid)
}

// ── tags ──────────────────────────────────────────────────────────────────

func (r *Repository) InsertTag(ctx context.Context, t TagRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO products.tags (guid, en, pl, created_at)
		 VALUES ($1, $2, $3, $4)`,
		t.GUID, t.EN, t.PL, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (r *Repository) SoftDeleteTag(ctx context.Context, guid string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products.tags SET removed_at = $2
		 WHERE guid = $1 AND removed_at IS NULL`,
		guid, at,
	)
	if err != nil {
		return false, fmt.Errorf("soft-delete tag: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) TagNameTaken(ctx context.Context, en, pl string) (field string, taken bool, err error) {
	takenEN, err := r.exists(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM products.tags WHERE en = $1 AND removed_at IS NULL
		)`, en)
	if err != nil {
		return "", false, err
	}
	if takenEN {
		return "en", true, nil
	}
	takenPL, err := r.exists(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM products.tags WHERE pl = $1 AND removed_at IS NULL
		)`, pl)
	if err != nil {
		return "", false, err
	}
	if takenPL {
		return "pl", true, nil
	}
	return "", false, nil
}

// GetLiveTags resolves the given guids against live tags, preserving no
// particular order. Callers compare lengths to detect missing references.
func (r *Repository) GetLiveTags(ctx context.Context, guids []string) ([]TagRow, error) {
	if len(guids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT guid, en, pl, created_at
		 FROM products.tags WHERE guid::text = ANY($1) AND removed_at IS NULL`,
		guids,
	)
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	defer rows.Close()

	var tags []TagRow
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

func (r *Repository) ListLiveTags(ctx context.Context, limit, offset int) ([]TagRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT guid, en, pl, created_at
		 FROM products.tags WHERE removed_at IS NULL
		 ORDER BY en LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []TagRow
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

func (r *Repository) CountLiveTags(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM products.tags WHERE removed_at IS NULL`)
}

// TagInUse reports whether any live product carries the tag.
func (r *Repository) TagInUse(ctx context.Context, guid string) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM products.products_tags pt
			JOIN products.products p ON p.guid = pt.product_guid
			WHERE pt.tag_guid = $1 AND p.removed_at IS NULL
		)`, guid)
}

// ── products ──────────────────────────────────────────────────────────────

const productColumns = `guid, sku, name_en, name_pl, image_url,
	description_en, description_pl,
	base_price_usd::text, base_price_pln::text,
	discount, quantity::text, weight, color_en, color_pl,
	category_guid, brand_guid, created_at, updated_at`

func (r *Repository) InsertProduct(ctx context.Context, p ProductRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO products.products
			(guid, sku, name_en, name_pl, image_url,
			 description_en, description_pl,
			 base_price_usd, base_price_pln,
			 discount, quantity, weight, color_en, color_pl,
			 category_guid, brand_guid, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		         $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.GUID, p.SKU, p.NameEN, p.NamePL, p.ImageURL,
		p.DescriptionEN, p.DescriptionPL,
		p.BasePriceUSD.String(), p.BasePricePLN.String(),
		p.Discount, p.Quantity.String(), p.Weight, p.ColorEN, p.ColorPL,
		p.CategoryGUID, p.BrandGUID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p ProductRow) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products.products SET
			sku = $2, name_en = $3, name_pl = $4, image_url = $5,
			description_en = $6, description_pl = $7,
			base_price_usd = $8, base_price_pln = $9,
			discount = $10, quantity = $11, weight = $12,
			color_en = $13, color_pl = $14,
			category_guid = $15, brand_guid = $16, updated_at = $17
		 WHERE guid = $1 AND removed_at IS NULL`,
		p.GUID, p.SKU, p.NameEN, p.NamePL, p.ImageURL,
		p.DescriptionEN, p.DescriptionPL,
		p.BasePriceUSD.String(), p.BasePricePLN.String(),
		p.Discount, p.Quantity.String(), p.Weight,
		p.ColorEN, p.ColorPL,
		p.CategoryGUID, p.BrandGUID, p.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SoftDeleteProduct(ctx context.Context, guid string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE products.products SET removed_at = $2
		 WHERE guid = $1 AND removed_at IS NULL`,
		guid, at,
	)
	if err != nil {
		return false, fmt.Errorf("soft-delete product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) GetLiveProduct(ctx context.Context, guid string) (*ProductRow, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+productColumns+`
		 FROM products.products WHERE guid = $1 AND removed_at IS NULL`,
		guid,
	)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ProductFieldTaken checks live-uniqueness of one of sku, name_en, name_pl,
// ignoring the product identified by excludeGUID (empty for inserts).
func (r *Repository) ProductFieldTaken(ctx context.Context, field, value, excludeGUID string) (bool, error) {
	var query string
	switch field {
	case "sku":
		query = `SELECT EXISTS (SELECT 1 FROM products.products
			WHERE sku = $1 AND removed_at IS NULL AND guid::text <> $2)`
	case "name_en":
		query = `SELECT EXISTS (SELECT 1 FROM products.products
			WHERE name_en = $1 AND removed_at IS NULL AND guid::text <> $2)`
	case "name_pl":
		query = `SELECT EXISTS (SELECT 1 FROM products.products
			WHERE name_pl = $1 AND removed_at IS NULL AND guid::text <> $2)`
	default:
		return false, fmt.Errorf("unknown uniqueness field %q", field)
	}
	return r.exists(ctx, query, value, excludeGUID)
}

func (r *Repository) ListLiveProducts(ctx context.Context, limit, offset int) ([]ProductRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products.products WHERE removed_at IS NULL
		 ORDER BY name_en LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []ProductRow
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *Repository) CountLiveProducts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM products.products WHERE removed_at IS NULL`)
}

// ReplaceProductTags swaps the product's tag set for the given guids.
func (r *Repository) ReplaceProductTags(ctx context.Context, productGUID string, tagGUIDs []string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM products.products_tags WHERE product_guid = $1`, productGUID,
	); err != nil {
		return fmt.Errorf("clear product tags: %w", err)
	}
	for _, tagGUID := range tagGUIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO products.products_tags (product_guid, tag_guid) VALUES ($1, $2)`,
			productGUID, tagGUID,
		); err != nil {
			return fmt.Errorf("attach tag %s: %w", tagGUID, err)
		}
	}
	return nil
}

// ListProductTags returns the live tags attached to a product.
func (r *Repository) ListProductTags(ctx context.Context, productGUID string) ([]TagRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.guid, t.en, t.pl, t.created_at
		 FROM products.products_tags pt
		 JOIN products.tags t ON t.guid = pt.tag_guid
		 WHERE pt.product_guid = $1 AND t.removed_at IS NULL
		 ORDER BY t.en`,
		productGUID,
	)
	if err != nil {
		return nil, fmt.Errorf("list product tags: %w", err)
	}
	defer rows.Close()

	var tags []TagRow
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// ── scan helpers ──────────────────────────────────────────────────────────

func scanBrand(row pgx.Row) (*BrandRow, error) {
	var (
		b    BrandRow
		guid pgtype.UUID
	)
	if err := row.Scan(&guid, &b.Name, &b.LogoURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.GUID = guid.String()
	return &b, nil
}

func scanCategory(row pgx.Row) (*CategoryRow, error) {
	var (
		c    CategoryRow
		guid pgtype.UUID
	)
	if err := row.Scan(&guid, &c.NameEN, &c.NamePL, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.GUID = guid.String()
	return &c, nil
}

func scanTag(row pgx.Row) (*TagRow, error) {
	var (
		t    TagRow
		guid pgtype.UUID
	)
	if err := row.Scan(&guid, &t.EN, &t.PL, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.GUID = guid.String()
	return &t, nil
}

func scanProduct(row pgx.Row) (*ProductRow, error) {
	var (
		p                      ProductRow
		guid, catGUID, brGUID  pgtype.UUID
		priceUSD, pricePLN, qt string
	)
	if err := row.Scan(
		&guid, &p.SKU, &p.NameEN, &p.NamePL, &p.ImageURL,
		&p.DescriptionEN, &p.DescriptionPL,
		&priceUSD, &pricePLN,
		&p.Discount, &qt, &p.Weight, &p.ColorEN, &p.ColorPL,
		&catGUID, &brGUID, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.GUID = guid.String()
	p.CategoryGUID = catGUID.String()
	p.BrandGUID = brGUID.String()

	var err error
	if p.BasePriceUSD, err = decimal.NewFromString(priceUSD); err != nil {
		return nil, fmt.Errorf("parse base_price_usd %q: %w", priceUSD, err)
	}
	if p.BasePricePLN, err = decimal.NewFromString(pricePLN); err != nil {
		return nil, fmt.Errorf("parse base_price_pln %q: %w", pricePLN, err)
	}
	if p.Quantity, err = decimal.NewFromString(qt); err != nil {
		return nil, fmt.Errorf("parse quantity %q: %w", qt, err)
	}
	return &p, nil
}

func (r *Repository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return found, nil
}

func (r *Repository) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
