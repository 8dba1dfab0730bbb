package domain

import "math"

// Clamp01 limits v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TempoDanceability peaks at 125 BPM and falls to zero 50 BPM either side.
func TempoDanceability(bpm float64) float64 {
	return Clamp01(1 - math.Abs(bpm-125)/50)
}

// EstimateMood derives valence and the mood vector from energy,
// danceability and mode. Major keys pull valence up.
func EstimateMood(energy, danceability float64, scale Scale) (float64, Moods) {
	modeWeight := 0.4
	if scale == Major {
		modeWeight = 0.6
	}
	valence := Clamp01(energy*0.5 + modeWeight*0.5)

	aggressive := 0.3
	if energy > 0.7 {
		aggressive = energy
	}
	return valence, Moods{
		Happy:      valence,
		Sad:        1 - valence,
		Energetic:  energy,
		Relaxed:    1 - energy,
		Aggressive: aggressive,
		Engagement: danceability,
	}
}

// MoodTag collapses a result into the single label the catalog UI shows.
func MoodTag(r DetectionResult) string {
	switch {
	case r.Energy > 0.7 && r.Danceability > 0.7:
		return "dance"
	case r.Valence > 0.6:
		return "happy"
	case r.Valence < 0.3:
		return "sad"
	case r.Key.Scale == Minor:
		return "dark"
	}
	return "neutral"
}
