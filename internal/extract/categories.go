package extract

import "strings"

// Category labels shared with the classifier's fixed label set.
const (
	CategoryGroceries     = "Alimente"
	CategoryTransport     = "Transport"
	CategoryUtilities     = "Utilitati"
	CategoryEntertainment = "Divertisment"
	CategoryHealth        = "Sanatate"
	CategoryShopping      = "Cumparaturi"
	CategoryRestaurant    = "Restaurant"
	CategoryTransfer      = "Transfer"
	CategoryIncome        = "Venit"
	CategoryGeneral       = "General"
)

// Categories returns the fixed category label set.
func Categories() []string {
	return []string{
		CategoryGroceries, CategoryTransport, CategoryUtilities,
		CategoryEntertainment, CategoryHealth, CategoryShopping,
		CategoryRestaurant, CategoryTransfer, CategoryIncome, CategoryGeneral,
	}
}

type categoryEntry struct {
	keyword    string
	category   string
	confidence float64
}

type categoryTable struct {
	entries []categoryEntry
}

// defaultCategories builds the keyword table for category prediction by
// merchant/operation lookup. Entries are checked in order, so the more
// specific categories come first.
func defaultCategories() *categoryTable {
	table := &categoryTable{}

	add := func(category string, confidence float64, keywords ...string) {
		for _, keyword := range keywords {
			table.entries = append(table.entries, categoryEntry{
				keyword:    keyword,
				category:   category,
				confidence: confidence,
			})
		}
	}

	add(CategoryGroceries, 0.9, "kaufland", "lidl", "carrefour", "auchan", "profi", "penny", "mega image")
	add(CategoryTransport, 0.85, "uber", "bolt", "omv", "petrom", "mol", "rompetrol", "lukoil", "metrorex", "cfr", "stb")
	add(CategoryUtilities, 0.85, "enel", "engie", "e.on", "electrica", "digi", "rcs", "orange", "vodafone", "telekom", "apa nova")
	add(CategoryEntertainment, 0.8, "netflix", "spotify", "hbo", "disney", "cinema", "steam", "playstation")
	add(CategoryHealth, 0.85, "farmacia", "catena", "sensiblu", "helpnet", "dr.max", "medlife", "regina maria", "sanador")
	add(CategoryShopping, 0.8, "emag", "altex", "flanco", "dedeman", "ikea", "zara", "h&m", "decathlon", "pepco")
	add(CategoryRestaurant, 0.8, "restaurant", "pizzeria", "kfc", "mcdonald", "starbucks", "cafenea", "bistro", "glovo", "tazz")
	add(CategoryIncome, 0.8, "salariu", "salary", "incasare", "dividende")
	add(CategoryTransfer, 0.75, "transfer", "virament")

	return table
}

// lookup scans the line for category keywords and returns the first match
// with its confidence, or an empty category.
func (t *categoryTable) lookup(line string) (string, float64) {
	lower := strings.ToLower(line)
	for _, entry := range t.entries {
		if strings.Contains(lower, entry.keyword) {
			return entry.category, entry.confidence
		}
	}
	return "", 0
}
