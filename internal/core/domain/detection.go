package domain

// MFCCCoefficients is the number of cepstral coefficients summarised.
const MFCCCoefficients = 13

// TempoCandidate is one tempo hypothesis.
type TempoCandidate struct {
	BPM        float64 `json:"bpm"`
	Confidence float64 `json:"confidence"`
}

// Moods are independent scores in [0, 1]; they do not sum to one.
type Moods struct {
	Happy      float64 `json:"happy"`
	Sad        float64 `json:"sad"`
	Energetic  float64 `json:"energetic"`
	Relaxed    float64 `json:"relaxed"`
	Aggressive float64 `json:"aggressive"`
	Engagement float64 `json:"engagement"`
}

// Timbre summarises MFCCs over time.
type Timbre struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// DetectionResult is the musical description of one clip. BPM is nil when
// no tempo could be estimated; MFCC is nil when the producing extractor
// does not compute timbre.
type DetectionResult struct {
	BPM          *float64         `json:"bpm"`
	Alternatives []TempoCandidate `json:"alternatives"`
	Beats        []float64        `json:"beats"`
	Confidence   float64          `json:"confidence"`
	Key          KeyEstimate      `json:"key"`
	Danceability float64          `json:"danceability"`
	Energy       float64          `json:"energy"`
	Valence      float64          `json:"valence"`
	Moods        Moods            `json:"moods"`
	MFCC         *Timbre          `json:"mfcc"`
}

// Tempo returns the BPM or 0 when unknown.
func (r DetectionResult) Tempo() float64 {
	if r.BPM == nil {
		return 0
	}
	return *r.BPM
}

// TempoAlternatives lists the detected tempo plus its half and double,
// the octave errors every beat tracker is prone to.
func TempoAlternatives(bpm, confidence float64) []TempoCandidate {
	return []TempoCandidate{
		{BPM: bpm, Confidence: confidence},
		{BPM: bpm / 2, Confidence: confidence * 0.7},
		{BPM: bpm * 2, Confidence: confidence * 0.7},
	}
}

// Engine names which extractor produced a result.
type Engine string

const (
	EnginePrimary  Engine = "primary"
	EngineFallback Engine = "fallback"
)

// Analysis is a DetectionResult plus the upload facts reported alongside it.
type Analysis struct {
	Filename string          `json:"filename"`
	Size     int64           `json:"size"`
	Duration float64         `json:"duration"`
	Engine   Engine          `json:"engine"`
	MoodTag  string          `json:"moodTag"`
	Result   DetectionResult `json:"analysis"`
}
