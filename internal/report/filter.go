package report

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/salesdash/internal/domain"
)

// ErrInvalidFilter is returned for malformed or out-of-range filter values.
var ErrInvalidFilter = errors.New("invalid filter")

var validate = newValidator()

// newValidator reports fields by their query parameter name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("query")
	})
	return v
}

// Filter is the query-string form of domain.ReportFilter. Zero means unset.
type Filter struct {
	Year          int   `query:"year" validate:"omitempty,min=1900,max=2100"`
	Month         int   `query:"month" validate:"omitempty,min=1,max=12"`
	Quarter       int   `query:"quarter" validate:"omitempty,min=1,max=4"`
	MarketID      int64 `query:"market_id" validate:"omitempty,min=1"`
	SegmentID     int64 `query:"segment_id" validate:"omitempty,min=1"`
	CategoryID    int64 `query:"category_id" validate:"omitempty,min=1"`
	SubcategoryID int64 `query:"subcategory_id" validate:"omitempty,min=1"`
	ProductID     int64 `query:"product_id" validate:"omitempty,min=1"`
}

// ParseFilter reads filter values from a query string. Blank parameters
// are treated as unset.
func ParseFilter(q url.Values) (Filter, error) {
	var (
		f    Filter
		errs []string
	)

	ints := []struct {
		key string
		dst *int
	}{
		{"year", &f.Year},
		{"month", &f.Month},
		{"quarter", &f.Quarter},
	}
	for _, p := range ints {
		v := strings.TrimSpace(q.Get(p.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a whole number", p.key))
			continue
		}
		*p.dst = n
	}

	ids := []struct {
		key string
		dst *int64
	}{
		{"market_id", &f.MarketID},
		{"segment_id", &f.SegmentID},
		{"category_id", &f.CategoryID},
		{"subcategory_id", &f.SubcategoryID},
		{"product_id", &f.ProductID},
	}
	for _, p := range ids {
		v := strings.TrimSpace(q.Get(p.key))
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be a whole number", p.key))
			continue
		}
		*p.dst = n
	}

	if len(errs) > 0 {
		return Filter{}, fmt.Errorf("%w: %s", ErrInvalidFilter, strings.Join(errs, "; "))
	}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Validate checks every set value against its allowed range.
func (f Filter) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s is out of range (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidFilter, strings.Join(msgs, "; "))
}

// Domain converts the filter for the query layer.
func (f Filter) Domain() domain.ReportFilter {
	return domain.ReportFilter{
		Year:          f.Year,
		Month:         f.Month,
		Quarter:       f.Quarter,
		MarketID:      f.MarketID,
		SegmentID:     f.SegmentID,
		CategoryID:    f.CategoryID,
		SubcategoryID: f.SubcategoryID,
		ProductID:     f.ProductID,
	}
}
