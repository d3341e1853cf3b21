package classify

// Rules is the immutable keyword and brand data the classifier runs on
type Rules struct {
	// JokeKeywords reject a listing outright (novelty / decorative items)
	JokeKeywords []string `yaml:"joke_keywords"`

	// FunctionalKeywords is mechanical-part vocabulary; a spare-parts listing
	// that names an appliance brand must contain at least one of these
	FunctionalKeywords []string `yaml:"functional_keywords"`

	// ApplianceBrands triggers the spare-parts strict filter
	ApplianceBrands []string `yaml:"appliance_brands"`

	// Brands is the brand registry; the first declared match wins
	Brands []string `yaml:"brands"`

	// SmallKeywords and LargeKeywords drive volume estimation
	SmallKeywords []string `yaml:"small_keywords"`
	LargeKeywords []string `yaml:"large_keywords"`
}

// DefaultRules returns the built-in keyword sets
func DefaultRules() Rules {
	return Rules{
		JokeKeywords: []string{
			"joke", "meme", "funny", "gag", "prank", "fake", "parody", "satire", "ironic", "not real", "fake part",
			"keychain", "logo", "decoration", "figurine", "statue", "ornament", "fan art", "toy", "miniature", "sign",
			"display", "stand", "desktop", "accessory", "charm", "pendant", "wall art", "poster", "non-functional",
		},
		FunctionalKeywords: []string{
			"gear", "knob", "handle", "bracket", "clip", "button", "lever", "mount", "adapter", "joint", "wheel",
			"shaft", "seal", "gasket", "spring", "latch", "hinge", "cap", "plug", "cover", "base", "housing", "shell",
			"replacement", "repair", "fix", "part", "impeller", "pulley", "bushing", "nozzle",
		},
		ApplianceBrands: []string{
			"Bosch", "Dyson", "Samsung", "LG", "Whirlpool", "Miele", "Ikea", "KitchenAid",
		},
		Brands: []string{
			"Bosch", "Dyson", "Ikea", "Samsung", "LG", "Whirlpool", "Philips", "Braun", "Miele",
			"Xiaomi", "Electrolux", "Kenwood", "KitchenAid", "DeLonghi", "Tefal", "Beko",
		},
		SmallKeywords: []string{"small", "tiny", "knob", "button", "clip", "gear"},
		LargeKeywords: []string{"large", "big", "housing", "case", "box", "mount"},
	}
}
