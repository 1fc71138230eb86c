package domain

// GenConfig tunes the random choices of the generator.
type GenConfig struct {
	// ChooseNewSigPct is the probability of drawing a fresh signature instead
	// of reusing an observed shape.
	ChooseNewSigPct float64
	// RechooseFctFactor and RechooseSigFactor multiply the weight of a
	// function or shape every time it is picked.
	RechooseFctFactor float64
	RechooseSigFactor float64
	// UseMinedNesting and UseMinedCall are the probabilities of consulting
	// the mined corpus.
	UseMinedNesting float64
	UseMinedCall    float64

	MaxNum       int
	MaxArrayLen  int
	MaxObjLen    int
	MaxStringLen int
	MaxArgs      int

	AllowAny               bool
	AllowMultipleCallbacks bool
	FreshTestIfCantExtend  bool
}

// DefaultGenConfig returns the default tuning.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		ChooseNewSigPct:       0.5,
		RechooseFctFactor:     0.8,
		RechooseSigFactor:     0.8,
		UseMinedNesting:       0.5,
		UseMinedCall:          0.5,
		MaxNum:                1000,
		MaxArrayLen:           10,
		MaxObjLen:             5,
		MaxStringLen:          5,
		MaxArgs:               5,
		AllowAny:              true,
		FreshTestIfCantExtend: true,
	}
}
