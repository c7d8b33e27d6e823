package domain

// Composite natural keys. Each one carries the full chain of names needed to
// tell two same-named children apart, e.g. two "Springfield" cities in
// different states.

type StateKey struct {
	Country string
	State   string
}

type CityKey struct {
	Country string
	State   string
	City    string
}

func (k CityKey) StateKey() StateKey {
	return StateKey{Country: k.Country, State: k.State}
}

type SubcategoryKey struct {
	Category    string
	Subcategory string
}

type ProductKey struct {
	Category    string
	Subcategory string
	Product     string
}

func (k ProductKey) SubcategoryKey() SubcategoryKey {
	return SubcategoryKey{Category: k.Category, Subcategory: k.Subcategory}
}
