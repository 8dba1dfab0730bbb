package query

import "regexp"

// Option lists the catalog UI filters on. Extracted values always come from
// these.
var (
	DrumTypeOptions = []string{
		"Kick Loop", "Snare Loop", "Hat Loop", "Percussion Loop",
		"Shaker Loop", "Top Loop", "Full Drum Loop", "Drum One-Shot", "Fill",
	}
	InstrumentOptions = []string{
		"Djembe", "Talking Drum", "Shekere", "Udu", "Bata",
		"Conga", "Bongo", "Kpanlogo", "Dunun", "Bougarabou",
		"Tama", "Sabar", "Ashiko", "Kenkeni", "Sangban",
	}
	GenreOptions = []string{
		"Afrobeat", "Afrobeats", "Amapiano", "Afrohouse", "Hip Hop", "Trap",
		"House", "Tech House", "Deep House", "Drill", "R&B", "Soul", "Funk",
		"Jazz", "Pop", "Electronic", "Techno", "Trance", "EDM", "Dancehall",
		"Reggae", "World",
	}
	KeywordOptions = []string{
		"Acoustic", "Chill", "Epic", "Energetic",
		"Experimental", "Groovy", "Mellow", "Percussive",
	}
	KeyOptions = []string{
		"C Major", "C Minor", "C# Major", "C# Minor", "D Major", "D Minor",
		"Eb Major", "Eb Minor", "E Major", "E Minor", "F Major", "F Minor",
		"F# Major", "F# Minor", "G Major", "G Minor", "Ab Major", "Ab Minor",
		"A Major", "A Minor", "Bb Major", "Bb Minor", "B Major", "B Minor",
	}
	TimeSignatureOptions = []string{"4/4", "3/4", "6/8", "5/4", "7/8"}
)

// rule maps a lowercase phrase to a canonical option. Tables are scanned in
// order and the first hit wins, so longer and more specific phrases must
// come before anything they contain.
type rule struct {
	phrase string
	value  string
}

var loopTypeRules = []rule{
	{"full drum loop", "Full Drum Loop"},
	{"full drums", "Full Drum Loop"},
	{"full drum", "Full Drum Loop"},
	{"full loop", "Full Drum Loop"},
	{"complete drum", "Full Drum Loop"},
	{"kick loop", "Kick Loop"},
	{"kicks loop", "Kick Loop"},
	{"snare loop", "Snare Loop"},
	{"snares loop", "Snare Loop"},
	{"hi-hat loop", "Hat Loop"},
	{"hihat loop", "Hat Loop"},
	{"hats loop", "Hat Loop"},
	{"hat loop", "Hat Loop"},
	{"percussion loop", "Percussion Loop"},
	{"perc loop", "Percussion Loop"},
	{"shaker loop", "Shaker Loop"},
	{"shakers loop", "Shaker Loop"},
	{"top loop", "Top Loop"},
	{"drum fill", "Fill"},
	{"fills", "Fill"},
	{"fill", "Fill"},
	{"one-shot", "Drum One-Shot"},
	{"oneshot", "Drum One-Shot"},
	{"one shot", "Drum One-Shot"},
}

var instrumentRules = []rule{
	{"djembe", "Djembe"},
	{"talking drum", "Talking Drum"},
	{"talkingdrum", "Talking Drum"},
	{"shekere", "Shekere"},
	{"udu", "Udu"},
	{"bata", "Bata"},
	{"congas", "Conga"},
	{"conga", "Conga"},
	{"bongos", "Bongo"},
	{"bongo", "Bongo"},
	{"kpanlogo", "Kpanlogo"},
	{"dunun", "Dunun"},
	{"bougarabou", "Bougarabou"},
	{"tama", "Tama"},
	{"sabar", "Sabar"},
	{"ashiko", "Ashiko"},
	{"kenkeni", "Kenkeni"},
	{"sangban", "Sangban"},
}

var genreRules = []rule{
	{"afro house", "Afrohouse"},
	{"afrohouse", "Afrohouse"},
	{"afrobeats", "Afrobeats"},
	{"afrobeat", "Afrobeats"},
	{"afro", "Afrobeats"},
	{"african", "Afrobeats"},
	{"amapiano", "Amapiano"},
	{"hip hop", "Hip Hop"},
	{"hiphop", "Hip Hop"},
	{"trap", "Trap"},
	{"tech house", "Tech House"},
	{"deep house", "Deep House"},
	{"house", "House"},
	{"drill", "Drill"},
	{"r&b", "R&B"},
	{"rnb", "R&B"},
	{"soul", "Soul"},
	{"funk", "Funk"},
	{"jazz", "Jazz"},
	{"pop", "Pop"},
	{"electronic", "Electronic"},
	{"techno", "Techno"},
	{"trance", "Trance"},
	{"edm", "EDM"},
	{"dancehall", "Dancehall"},
	{"reggae", "Reggae"},
	{"world", "World"},
}

var keywordRules = []rule{
	{"acoustic", "Acoustic"},
	{"chill", "Chill"},
	{"mellow", "Chill"},
	{"relaxed", "Chill"},
	{"calm", "Chill"},
	{"epic", "Epic"},
	{"energetic", "Energetic"},
	{"energy", "Energetic"},
	{"upbeat", "Energetic"},
	{"fast", "Energetic"},
	{"dynamic", "Energetic"},
	{"powerful", "Energetic"},
	{"experimental", "Experimental"},
	{"groovy", "Groovy"},
	{"groove", "Groovy"},
	{"percussive", "Percussive"},
}

type pattern struct {
	re    *regexp.Regexp
	value string
}

// keyPattern matches "<tonic> major|maj" or "<tonic> minor|min" on word
// boundaries so that "music major" never reads as C major.
func keyPattern(tonics []string, scale string) *regexp.Regexp {
	long, short := "major", "maj"
	if scale == "minor" {
		long, short = "minor", "min"
	}
	expr := `(?i)\b(?:`
	for i, t := range tonics {
		if i > 0 {
			expr += "|"
		}
		expr += t
	}
	expr += `)\s*(?:` + long + `|` + short + `)\b`
	return regexp.MustCompile(expr)
}

func keyRules(spellings map[string][]string) []pattern {
	out := make([]pattern, 0, len(KeyOptions))
	for _, opt := range KeyOptions {
		tonic, scale := splitKeyOption(opt)
		out = append(out, pattern{re: keyPattern(spellings[tonic], scale), value: opt})
	}
	return out
}

func splitKeyOption(opt string) (string, string) {
	for i := len(opt) - 1; i >= 0; i-- {
		if opt[i] == ' ' {
			scale := "major"
			if opt[i+1:] == "Minor" {
				scale = "minor"
			}
			return opt[:i], scale
		}
	}
	return opt, "major"
}

// keyPatterns follow KeyOptions order.
var keyPatterns = keyRules(map[string][]string{
	"C":  {`c`},
	"C#": {`c#`, `c\s*sharp`},
	"D":  {`d`},
	"Eb": {`eb`, `e\s*flat`},
	"E":  {`e`},
	"F":  {`f`},
	"F#": {`f#`, `f\s*sharp`},
	"G":  {`g`},
	"Ab": {`ab`, `a\s*flat`},
	"A":  {`a`},
	"Bb": {`bb`, `b\s*flat`},
	"B":  {`b`},
})

var timeSignaturePatterns = []pattern{
	{regexp.MustCompile(`(?i)4/4|four four|common time`), "4/4"},
	{regexp.MustCompile(`(?i)3/4|three four|waltz time`), "3/4"},
	{regexp.MustCompile(`(?i)6/8|six eight`), "6/8"},
	{regexp.MustCompile(`(?i)5/4|five four`), "5/4"},
	{regexp.MustCompile(`(?i)7/8|seven eight`), "7/8"},
}
