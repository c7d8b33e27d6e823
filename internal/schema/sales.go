package schema

// Sheet column headers.
const (
	ColRegion      = "Region"
	ColMarket      = "Market"
	ColCountry     = "Country"
	ColLatitude    = "Country latitude"
	ColLongitude   = "Country longitude"
	ColState       = "State"
	ColCity        = "City"
	ColSegment     = "Segment"
	ColCustomerID  = "Customer ID"
	ColCategory    = "Category"
	ColSubcategory = "Subcategory"
	ColProduct     = "Product"
	ColRowID       = "Row ID"
	ColOrderID     = "Order ID"
	ColOrderDate   = "Order Date"
	ColQuantity    = "Quantity"
	ColSales       = "Sales"
	ColDiscount    = "Discount"
	ColProfit      = "Profit"
)

// SalesFieldSpecs lists every column of the sales sheet. Dimension columns
// are text and may be blank; fact columns are typed and must hold a value.
var SalesFieldSpecs = []FieldSpec{
	{Name: ColRegion, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColMarket, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColCountry, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColLatitude, Type: FieldFloat, AllowEmpty: true},
	{Name: ColLongitude, Type: FieldFloat, AllowEmpty: true},
	{Name: ColState, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColCity, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColSegment, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColCustomerID, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColCategory, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColSubcategory, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColProduct, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColRowID, Type: FieldInt, Required: true},
	{Name: ColOrderID, Type: FieldText, Required: true, AllowEmpty: true},
	{Name: ColOrderDate, Type: FieldDate, Required: true},
	{Name: ColQuantity, Type: FieldInt, Required: true},
	{Name: ColSales, Type: FieldNumeric, Required: true},
	{Name: ColDiscount, Type: FieldNumeric, Required: true},
	{Name: ColProfit, Type: FieldNumeric, Required: true},
}

// RequiredColumns returns the headers that must be present, in sheet order.
func RequiredColumns() []string {
	cols := make([]string, 0, len(SalesFieldSpecs))
	for _, spec := range SalesFieldSpecs {
		if spec.Required {
			cols = append(cols, spec.Name)
		}
	}
	return cols
}

// Lookup returns the field definition for a header name.
func Lookup(name string) (FieldSpec, bool) {
	for _, spec := range SalesFieldSpecs {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}
