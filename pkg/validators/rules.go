package validators

// Rules parameterize the knowledge-driven validators. DefaultRules covers
// the common cases; productions layer their own entries on top.
type Rules struct {
	// EraReferents maps a referent (word or phrase, lowercase) to the
	// first story year it may appear in. Dialogue set earlier is flagged.
	EraReferents map[string]int

	// EducationComplexity maps an education level to the maximum long-word
	// ratio its speakers may produce.
	EducationComplexity map[string]float64

	// ConflictMethods maps conflict type → intensity → permitted
	// resolution methods.
	ConflictMethods map[string]map[string][]string

	// Cultural holds per-era, per-region content rules.
	Cultural []CulturalRule
}

// CulturalRule constrains scenes in an era band and region. Zero EraFrom/
// EraTo match any era; empty Region matches any region.
type CulturalRule struct {
	EraFrom int
	EraTo   int
	Region  string

	Forbidden     []string
	Required      []string
	Stereotypes   []string
	Appropriation []string
}

// Matches reports whether the rule applies to a scene's era and region.
func (r CulturalRule) Matches(era int, region string) bool {
	if r.Region != "" && r.Region != region {
		return false
	}

	if r.EraFrom != 0 && era != 0 && era < r.EraFrom {
		return false
	}

	if r.EraTo != 0 && era != 0 && era > r.EraTo {
		return false
	}

	return true
}

// Third-party conflict resolution methods and the skill they require.
const (
	MethodMediation   = "mediation"
	MethodArbitration = "arbitration"
)

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		EraReferents: map[string]int{
			"smartphone":  2007,
			"selfie":      2002,
			"email":       1971,
			"internet":    1991,
			"television":  1927,
			"cell phone":  1983,
			"computer":    1946,
			"airplane":    1903,
			"automobile":  1886,
			"photograph":  1826,
			"telephone":   1876,
			"video call":  2003,
			"livestream":  2011,
			"社交媒体":        2004,
			"智能手机":        2007,
			"互联网":         1994,
			"电视":          1958,
			"手机":          1987,
		},

		EducationComplexity: map[string]float64{
			"none":       0.10,
			"elementary": 0.15,
			"secondary":  0.25,
			"higher":     1.0,
		},

		ConflictMethods: map[string]map[string][]string{
			"interpersonal": {
				"low":    {"dialogue", "compromise", "apology", "avoidance"},
				"medium": {"dialogue", "compromise", MethodMediation, "confrontation"},
				"high":   {MethodMediation, MethodArbitration, "confrontation", "separation"},
			},
			"internal": {
				"low":    {"reflection", "dialogue"},
				"medium": {"reflection", "counsel", "dialogue"},
				"high":   {"counsel", "transformation"},
			},
			"societal": {
				"low":    {"dialogue", "petition"},
				"medium": {"petition", MethodMediation, "protest"},
				"high":   {MethodArbitration, "uprising", "exodus"},
			},
			"physical": {
				"low":    {"avoidance", "confrontation"},
				"medium": {"confrontation", "escape", MethodArbitration},
				"high":   {"escape", "combat", "rescue"},
			},
		},
	}
}
