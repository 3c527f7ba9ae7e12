package catalog

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

func validateProduct(in *ProductWrite) error {
	if err := requireLength("sku", in.SKU, 1, 16); err != nil {
		return err
	}
	if err := requireLength("name_en", in.NameEN, 1, 64); err != nil {
		return err
	}
	if err := requireLength("name_pl", in.NamePL, 1, 64); err != nil {
		return err
	}
	if len(in.ImageURL) > 256 {
		return fmt.Errorf("%w: image_url exceeds 256 characters", ErrInvalidInput)
	}
	if err := requireLength("description_en", in.DescriptionEN, 1, 4096); err != nil {
		return err
	}
	if err := requireLength("description_pl", in.DescriptionPL, 1, 4096); err != nil {
		return err
	}
	if err := validatePrice("base_price_usd", in.BasePriceUSD); err != nil {
		return err
	}
	if err := validatePrice("base_price_pln", in.BasePricePLN); err != nil {
		return err
	}
	if in.Discount != nil && (*in.Discount < 1 || *in.Discount > 99) {
		return fmt.Errorf("%w: discount must be between 1 and 99", ErrInvalidInput)
	}
	if in.Quantity.LessThan(one) {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if in.Weight <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidInput)
	}
	if err := requireLength("color_en", in.ColorEN, 1, 32); err != nil {
		return err
	}
	if err := requireLength("color_pl", in.ColorPL, 1, 32); err != nil {
		return err
	}
	if err := requireGUID("category", in.Category); err != nil {
		return err
	}
	if err := requireGUID("brand", in.Brand); err != nil {
		return err
	}
	for _, tag := range in.Tags {
		if err := requireGUID("tags", tag); err != nil {
			return err
		}
	}
	return nil
}

func validateCategory(in *CategoryWrite) error {
	if err := requireLength("name_en", in.NameEN, 1, 64); err != nil {
		return err
	}
	return requireLength("name_pl", in.NamePL, 1, 64)
}

func validateBrand(in *BrandWrite) error {
	if err := requireLength("name", in.Name, 1, 64); err != nil {
		return err
	}
	if len(in.LogoURL) > 256 {
		return fmt.Errorf("%w: logo_url exceeds 256 characters", ErrInvalidInput)
	}
	return nil
}

func validateTag(in *TagWrite) error {
	if err := requireLength("en", in.EN, 1, 16); err != nil {
		return err
	}
	return requireLength("pl", in.PL, 1, 16)
}

func requireLength(field, value string, min, max int) error {
	if len(value) < min {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if len(value) > max {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, field, max)
	}
	return nil
}

func validatePrice(field string, value decimal.Decimal) error {
	if value.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, field)
	}
	if value.Exponent() < -2 {
		return fmt.Errorf("%w: %s carries more than two fractional digits", ErrInvalidInput, field)
	}
	return nil
}

func requireGUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%w: %s must be a valid guid", ErrInvalidInput, field)
	}
	return nil
}
