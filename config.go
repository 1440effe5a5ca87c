package qturing

type Config struct {
	// DecoherenceProbability is used by Step when decoherence is requested.
	DecoherenceProbability float64
	// StartSteps is the first budget tried by the search.
	StartSteps int
	// StepLimit caps the budgets tried by the search.
	StepLimit int
	// AutoFactor and AutoOffset drive EstimateSteps.
	AutoFactor int
	AutoOffset int
	// DisplayThreshold hides configurations at or below this probability.
	DisplayThreshold float64
}

func NewConfig() *Config {
	return &Config{
		DecoherenceProbability: 0.1,
		StartSteps:             2,
		StepLimit:              100,
		AutoFactor:             4,
		AutoOffset:             10,
		DisplayThreshold:       0.001,
	}
}

// EstimateSteps is the automatic budget k*len(input)+b, counted in symbols.
func EstimateSteps(input string, factor, offset int) int {
	return factor*len([]rune(input)) + offset
}
