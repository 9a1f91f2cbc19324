package grocery

import "strings"

// Other is returned for names no category matches.
const Other = "Other"

type category struct {
	name string
	// exact holds whole item names.
	exact []string
	// keywords are matched as substrings, most specific first.
	keywords []string
}

// Categories are listed in aisle order. Keyword matching walks them in
// this order, so a category listed earlier wins a tie.
var categories = []category{
	{
		name:     "Meat & Seafood",
		exact:    []string{"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham", "steak", "salmon", "shrimp", "tuna", "fish", "lamb"},
		keywords: []string{"chicken breast", "chicken thigh", "ground beef", "ground turkey", "pork chop", "deli meat", "hot dog"},
	},
	{
		name:     "Dairy",
		exact:    []string{"milk", "eggs", "butter", "cheese", "yogurt"},
		keywords: []string{"cream cheese", "sour cream", "heavy cream", "half and half", "almond milk", "oat milk", "yogurt", "cheese", "milk", "butter", "cream", "egg"},
	},
	{
		name:     "Produce",
		exact:    []string{"apples", "bananas", "lemons", "limes", "avocados", "garlic", "lettuce", "spinach", "broccoli", "carrots", "grapes", "cilantro", "basil"},
		keywords: []string{"sweet potato", "bell pepper", "green onion", "spinach", "lettuce", "salad", "berries", "berry", "fruit", "apple", "banana", "tomato", "potato", "onion", "carrot", "pepper"},
	},
	{
		name:     "Bakery",
		exact:    []string{"bread", "bagels", "tortillas", "rolls", "buns", "pita"},
		keywords: []string{"sourdough", "bread", "bagel", "tortilla", "muffin", "croissant"},
	},
	{
		name:     "Pantry",
		exact:    []string{"rice", "pasta", "flour", "sugar", "salt", "oil", "honey", "cereal", "beans", "nuts"},
		keywords: []string{"peanut butter", "olive oil", "soy sauce", "canned", "sauce", "noodle", "spice", "broth", "soup", "bean"},
	},
	{
		name:     "Frozen",
		exact:    []string{"ice cream", "popsicles"},
		keywords: []string{"frozen", "ice cream"},
	},
	{
		name:     "Beverages",
		exact:    []string{"water", "juice", "coffee", "tea", "soda", "beer", "wine"},
		keywords: []string{"sparkling water", "juice", "coffee", "soda", "drink"},
	},
	{
		name:     "Snacks",
		exact:    []string{"chips", "crackers", "cookies", "popcorn", "pretzels", "candy", "chocolate"},
		keywords: []string{"granola bar", "trail mix", "chip", "cracker", "cookie", "snack"},
	},
	{
		name:     "Household",
		exact:    []string{"paper towels", "toilet paper", "trash bags", "dish soap", "batteries", "napkins"},
		keywords: []string{"paper towel", "trash bag", "dish soap", "detergent", "laundry", "cleaner", "sponge", "foil", "battery"},
	},
	{
		name:     "Personal Care",
		exact:    []string{"shampoo", "soap", "toothpaste", "deodorant", "sunscreen", "tissues"},
		keywords: []string{"body wash", "shampoo", "conditioner", "toothpaste", "toothbrush", "razor", "lotion"},
	},
}

var exactIndex = func() map[string]string {
	m := make(map[string]string)
	for _, c := range categories {
		for _, name := range c.exact {
			m[name] = c.name
		}
	}
	return m
}()

// Categorize returns the aisle category for an item name: an exact name
// match first, then the first keyword contained in the name, else Other.
// Matching is case-insensitive.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return Other
	}
	if cat, ok := exactIndex[name]; ok {
		return cat
	}
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(name, kw) {
				return c.name
			}
		}
	}
	return Other
}

// Names lists every category in aisle order, ending with Other.
func Names() []string {
	out := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		out = append(out, c.name)
	}
	return append(out, Other)
}
