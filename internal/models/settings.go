package models

// Closed enumerations for the categorical run knobs. They serialize as
// strings, matching the camelCase settings blob persisted with each run.

type StepResolution string

const (
	ResolutionDay  StepResolution = "Day"
	ResolutionWeek StepResolution = "Week"
	ResolutionHour StepResolution = "Hour"
)

type EndStateIncentive string

const (
	IncentiveMeanEnergyPrice        EndStateIncentive = "MeanEnergyPrice"
	IncentiveLastEnergyPrice        EndStateIncentive = "LastEnergyPrice"
	IncentiveProvidedEndEnergyPrice EndStateIncentive = "ProvidedEndEnergyPrice"
	IncentiveOff                    EndStateIncentive = "Off"
)

type Noise string

const (
	NoiseStandardDev Noise = "StandardDev"
	NoiseWhite       Noise = "White"
	NoiseOff         Noise = "Off"
)

type AgentAlgorithm string

const (
	AlgorithmSAC  AgentAlgorithm = "SAC"
	AlgorithmA2C  AgentAlgorithm = "A2C"
	AlgorithmDDPG AgentAlgorithm = "DDPG"
	AlgorithmTD3  AgentAlgorithm = "TD3"
	AlgorithmPPO  AgentAlgorithm = "PPO"
)

// RunSettings is the value object submitted with every run-creation request.
// It is persisted verbatim as the run's camelCase JSON settings blob, so
// field tags are the wire format and the storage format at once.
type RunSettings struct {
	Comment                    string             `json:"comment"`
	TrainEpisodes              int                `json:"trainEpisodes"`
	EndStateIncentive          EndStateIncentive  `json:"endStateIncentive"`
	Noise                      Noise              `json:"noise"`
	PreviousProjectRunUID      *string            `json:"previousProjectRunUid"`
	PreviousQValueProjectRunUID *string           `json:"previousQValueProjectRunUid"`
	DiscountRate               float64            `json:"discountRate"`
	StartVolumes               map[string]float64 `json:"startVolumes"`
	StepsInEpisode             int                `json:"stepsInEpisode"`
	StepResolution             StepResolution     `json:"stepResolution"`
	StepFrequency              int                `json:"stepFrequency"`
	RandomizeStartVolume       bool               `json:"randomizeStartVolume"`
	RewardScaleFactor          float64            `json:"rewardScaleFactor"`
	ForecastClusters           int                `json:"forecastClusters"`
	PriceOfSpillage            float64            `json:"priceOfSpillage"`
	EndEnergyPrice             float64            `json:"endEnergyPrice"`
	EvaluationEpisodes         int                `json:"evaluationEpisodes"`
	EvaluationInterval         int                `json:"evaluationInterval"`
	AgentAlgorithm             AgentAlgorithm     `json:"agentAlgorithm"`
}

// TemplateRunSettings returns the starting point offered to clients for a
// given reservoir set. Start volumes are seeded at each reservoir's minimum.
func TemplateRunSettings(reservoirs []Reservoir) RunSettings {
	startVolumes := make(map[string]float64, len(reservoirs))
	for _, res := range reservoirs {
		startVolumes[res.Name] = res.MinVolume
	}

	return RunSettings{
		StartVolumes:         startVolumes,
		StepsInEpisode:       104,
		StepFrequency:        1,
		StepResolution:       ResolutionWeek,
		RewardScaleFactor:    10,
		PriceOfSpillage:      1,
		ForecastClusters:     7,
		RandomizeStartVolume: true,
		DiscountRate:         0.04,
		TrainEpisodes:        10000,
		EvaluationEpisodes:   5,
		EvaluationInterval:   30,
		EndStateIncentive:    IncentiveMeanEnergyPrice,
		Noise:                NoiseOff,
		AgentAlgorithm:       AlgorithmSAC,
	}
}
