// Package suggest proposes an item type from an item's name, so a quickly
// typed "milk" lands under Dairy without anyone touching the type field.
// Suggestions are plain defaults: households keep their own type catalogs
// and can always override.
package suggest

import "strings"

// Type returns the suggested type for an item name. ok is false when the
// name matches nothing; callers should then leave the type empty rather
// than guess.
func Type(itemName string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return "", false
	}

	if t, ok := exactMatch[name]; ok {
		return t, true
	}

	// Substring rules are ordered most-specific first: "peanut butter"
	// must win over "butter".
	for _, rule := range substringRules {
		if strings.Contains(name, rule.keyword) {
			return rule.typeName, true
		}
	}

	return "", false
}

var exactMatch = map[string]string{
	// Produce
	"apple":        "Produce",
	"apples":       "Produce",
	"banana":       "Produce",
	"bananas":      "Produce",
	"orange":       "Produce",
	"oranges":      "Produce",
	"lemon":        "Produce",
	"lime":         "Produce",
	"avocado":      "Produce",
	"tomato":       "Produce",
	"tomatoes":     "Produce",
	"potato":       "Produce",
	"potatoes":     "Produce",
	"onion":        "Produce",
	"onions":       "Produce",
	"garlic":       "Produce",
	"lettuce":      "Produce",
	"spinach":      "Produce",
	"broccoli":     "Produce",
	"carrots":      "Produce",
	"celery":       "Produce",
	"cucumber":     "Produce",
	"mushrooms":    "Produce",
	"grapes":       "Produce",
	"strawberries": "Produce",
	"blueberries":  "Produce",
	"ginger":       "Produce",
	"zucchini":     "Produce",

	// Dairy
	"milk":    "Dairy",
	"butter":  "Dairy",
	"cheese":  "Dairy",
	"yogurt":  "Dairy",
	"cream":   "Dairy",
	"eggs":    "Dairy",
	"cheddar": "Dairy",

	// Meat & Seafood
	"chicken": "Meat & Seafood",
	"beef":    "Meat & Seafood",
	"pork":    "Meat & Seafood",
	"bacon":   "Meat & Seafood",
	"salmon":  "Meat & Seafood",
	"shrimp":  "Meat & Seafood",
	"turkey":  "Meat & Seafood",
	"ham":     "Meat & Seafood",

	// Bakery
	"bread":      "Bakery",
	"bagels":     "Bakery",
	"tortillas":  "Bakery",
	"croissants": "Bakery",
	"buns":       "Bakery",

	// Pantry
	"rice":      "Pantry",
	"pasta":     "Pantry",
	"flour":     "Pantry",
	"sugar":     "Pantry",
	"salt":      "Pantry",
	"oats":      "Pantry",
	"cereal":    "Pantry",
	"honey":     "Pantry",
	"olive oil": "Pantry",
	"ketchup":   "Pantry",
	"mustard":   "Pantry",
	"beans":     "Pantry",

	// Frozen
	"ice cream": "Frozen",
	"ice":       "Frozen",

	// Beverages
	"coffee": "Beverages",
	"tea":    "Beverages",
	"juice":  "Beverages",
	"soda":   "Beverages",
	"beer":   "Beverages",
	"wine":   "Beverages",
	"water":  "Beverages",

	// Snacks
	"chips":    "Snacks",
	"crackers": "Snacks",
	"popcorn":  "Snacks",
	"cookies":  "Snacks",
	"pretzels": "Snacks",

	// Household
	"paper towels":  "Household",
	"toilet paper":  "Household",
	"dish soap":     "Household",
	"sponges":       "Household",
	"trash bags":    "Household",
	"foil":          "Household",
	"batteries":     "Household",
	"light bulbs":   "Household",
	"laundry soap":  "Household",
	"paper napkins": "Household",

	// Personal Care
	"shampoo":     "Personal Care",
	"conditioner": "Personal Care",
	"toothpaste":  "Personal Care",
	"deodorant":   "Personal Care",
	"soap":        "Personal Care",
	"razors":      "Personal Care",
	"floss":       "Personal Care",
}

type substringRule struct {
	keyword  string
	typeName string
}

var substringRules = []substringRule{
	{"peanut butter", "Pantry"},
	{"almond butter", "Pantry"},
	{"cream cheese", "Dairy"},
	{"sour cream", "Dairy"},
	{"ice cream", "Frozen"},
	{"frozen", "Frozen"},
	{"ground beef", "Meat & Seafood"},
	{"chicken", "Meat & Seafood"},
	{"steak", "Meat & Seafood"},
	{"fish", "Meat & Seafood"},
	{"bread", "Bakery"},
	{"sauce", "Pantry"},
	{"canned", "Pantry"},
	{"spice", "Pantry"},
	{"oil", "Pantry"},
	{"vinegar", "Pantry"},
	{"spinach", "Produce"},
	{"pepper", "Produce"},
	{"berries", "Produce"},
	{"juice", "Beverages"},
	{"water", "Beverages"},
	{"coffee", "Beverages"},
	{"milk", "Dairy"},
	{"cheese", "Dairy"},
	{"yogurt", "Dairy"},
	{"detergent", "Household"},
	{"cleaner", "Household"},
	{"towel", "Household"},
	{"lotion", "Personal Care"},
	{"toothbrush", "Personal Care"},
}
