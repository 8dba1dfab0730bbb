package scoring

import "github.com/ewilliams-labs/loopmatch/internal/core/domain"

// Key points.
const (
	keyExact   = 25.0
	keyUnknown = 10.0
)

// camelot is a position on the mixing wheel: Num 1-12, Minor for the A ring.
type camelot struct {
	Num   int
	Minor bool
}

func toCamelot(k domain.Key) camelot {
	tonic := int(k.Tonic)
	if k.Scale == domain.Minor {
		tonic += 3 // read minor keys off their relative major
	}
	return camelot{Num: ((tonic%12)*7%12+7)%12 + 1, Minor: k.Scale == domain.Minor}
}

func fromCamelot(c camelot) domain.Key {
	// inverse of toCamelot: C major sits at 8B and each step adds a fifth
	steps := ((c.Num-8)%12 + 12) % 12
	tonic := domain.PitchClass(steps * 7 % 12)
	if c.Minor {
		return domain.Key{Tonic: tonic, Scale: domain.Major}.Relative()
	}
	return domain.Key{Tonic: tonic, Scale: domain.Major}
}

func (c camelot) step(n int, swap bool) camelot {
	out := camelot{Num: ((c.Num-1+n)%12+12)%12 + 1, Minor: c.Minor}
	if swap {
		out.Minor = !out.Minor
	}
	return out
}

type relation struct {
	name  string
	bonus float64
	move  func(domain.Key) domain.Key
}

// relations is ordered strongest first; a key reached by two moves keeps
// the first bonus.
var relations = []relation{
	{"relative", 35, func(k domain.Key) domain.Key { return fromCamelot(toCamelot(k).step(0, true)) }},
	{"dominant", 30, func(k domain.Key) domain.Key { return fromCamelot(toCamelot(k).step(1, false)) }},
	{"subdominant", 28, func(k domain.Key) domain.Key { return fromCamelot(toCamelot(k).step(-1, false)) }},
	{"diagonal", 22, func(k domain.Key) domain.Key { return fromCamelot(toCamelot(k).step(1, true)) }},
	{"parallel", 20, func(k domain.Key) domain.Key {
		if k.Scale == domain.Minor {
			return domain.Key{Tonic: k.Tonic, Scale: domain.Major}
		}
		return domain.Key{Tonic: k.Tonic, Scale: domain.Minor}
	}},
	{"energy boost", 18, func(k domain.Key) domain.Key { return fromCamelot(toCamelot(k).step(2, false)) }},
}

type related struct {
	key   domain.Key
	bonus float64
}

// harmonicTable maps every one of the 24 keys to its related keys.
var harmonicTable = buildHarmonicTable()

func buildHarmonicTable() map[domain.Key][]related {
	table := make(map[domain.Key][]related, 24)
	for pc := 0; pc < 12; pc++ {
		for _, scale := range []domain.Scale{domain.Major, domain.Minor} {
			k := domain.Key{Tonic: domain.PitchClass(pc), Scale: scale}
			var rel []related
			seen := map[domain.Key]bool{k: true}
			for _, r := range relations {
				target := r.move(k)
				if seen[target] {
					continue
				}
				seen[target] = true
				rel = append(rel, related{key: target, bonus: r.bonus})
			}
			table[k] = rel
		}
	}
	return table
}

// KeyScore rates how well itemKey sits against detectedKey. Unparseable
// or missing labels score the same as an unrelated key.
func KeyScore(detectedKey, itemKey string) float64 {
	d, ok := domain.ParseKey(detectedKey)
	if !ok {
		return keyUnknown
	}
	i, ok := domain.ParseKey(itemKey)
	if !ok {
		return keyUnknown
	}
	if d == i {
		return keyExact
	}
	for _, r := range harmonicTable[d] {
		if r.key == i {
			return r.bonus
		}
	}
	return keyUnknown
}
