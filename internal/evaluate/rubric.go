package evaluate

// PerformanceWeights are the penalties of the performance rubric.
type PerformanceWeights struct {
	LCPNeedsImprovement int `mapstructure:"lcp_needs_improvement"`
	LCPPoor             int `mapstructure:"lcp_poor"`
	TooManyScripts      int `mapstructure:"too_many_scripts"`
	TooManyStylesheets  int `mapstructure:"too_many_stylesheets"`
	NoCompression       int `mapstructure:"no_compression"`
	NoCacheHeaders      int `mapstructure:"no_cache_headers"`
}

// SEOWeights are the penalties of the SEO rubric.
type SEOWeights struct {
	TitleLength        int `mapstructure:"title_length"`
	MissingDescription int `mapstructure:"missing_description"`
	DescriptionLength  int `mapstructure:"description_length"`
	H1Count            int `mapstructure:"h1_count"`
	AltCoverage        int `mapstructure:"alt_coverage"`
	MissingViewport    int `mapstructure:"missing_viewport"`
	MissingCanonical   int `mapstructure:"missing_canonical"`
}

// AccessibilityWeights are the penalties of the accessibility rubric.
type AccessibilityWeights struct {
	AltCoverage  int `mapstructure:"alt_coverage"`
	ButtonLabels int `mapstructure:"button_labels"`
	InputLabels  int `mapstructure:"input_labels"`
	Landmarks    int `mapstructure:"landmarks"`
	SkipLinks    int `mapstructure:"skip_links"`
}

// SecurityWeights are the penalties of the security rubric.
type SecurityWeights struct {
	HTTPS               int `mapstructure:"https"`
	MixedContent        int `mapstructure:"mixed_content"`
	HSTS                int `mapstructure:"hsts"`
	CSP                 int `mapstructure:"csp"`
	XFrameOptions       int `mapstructure:"x_frame_options"`
	XContentTypeOptions int `mapstructure:"x_content_type_options"`
	InsecureForms       int `mapstructure:"insecure_forms"`
}

// ModernWebWeights are the penalties of the modern-web rubric.
type ModernWebWeights struct {
	Viewport     int `mapstructure:"viewport"`
	SemanticHTML int `mapstructure:"semantic_html"`
	ModernCSS    int `mapstructure:"modern_css"`
	LazyLoading  int `mapstructure:"lazy_loading"`
}

// Cutoffs are the minimum scores for baselinePass per category.
type Cutoffs struct {
	Performance   int `mapstructure:"performance"`
	SEO           int `mapstructure:"seo"`
	Accessibility int `mapstructure:"accessibility"`
	Security      int `mapstructure:"security"`
	ModernWeb     int `mapstructure:"modern_web"`
}

// Rubric holds every configurable weight and cutoff.
type Rubric struct {
	Performance   PerformanceWeights   `mapstructure:"performance"`
	SEO           SEOWeights           `mapstructure:"seo"`
	Accessibility AccessibilityWeights `mapstructure:"accessibility"`
	Security      SecurityWeights      `mapstructure:"security"`
	ModernWeb     ModernWebWeights     `mapstructure:"modern_web"`
	Cutoffs       Cutoffs              `mapstructure:"cutoffs"`
}

// DefaultRubric returns the stock weights.
func DefaultRubric() Rubric {
	return Rubric{
		Performance: PerformanceWeights{
			LCPNeedsImprovement: 15,
			LCPPoor:             30,
			TooManyScripts:      10,
			TooManyStylesheets:  5,
			NoCompression:       15,
			NoCacheHeaders:      10,
		},
		SEO: SEOWeights{
			TitleLength:        15,
			MissingDescription: 20,
			DescriptionLength:  10,
			H1Count:            15,
			AltCoverage:        20,
			MissingViewport:    15,
			MissingCanonical:   5,
		},
		Accessibility: AccessibilityWeights{
			AltCoverage:  25,
			ButtonLabels: 15,
			InputLabels:  20,
			Landmarks:    15,
			SkipLinks:    10,
		},
		Security: SecurityWeights{
			HTTPS:               40,
			MixedContent:        20,
			HSTS:                15,
			CSP:                 15,
			XFrameOptions:       15,
			XContentTypeOptions: 15,
			InsecureForms:       15,
		},
		ModernWeb: ModernWebWeights{
			Viewport:     20,
			SemanticHTML: 20,
			ModernCSS:    15,
			LazyLoading:  15,
		},
		Cutoffs: Cutoffs{
			Performance:   80,
			SEO:           80,
			Accessibility: 85,
			Security:      80,
			ModernWeb:     75,
		},
	}
}
