package sampledata

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/internal/domain/scoring"
)

// Achievement bands, as fractions of potential.
const (
	caseStruggling = iota
	caseBelowPar
	caseOnTrack
	caseStrong
	caseOverAchiever
	caseDormant
	caseCount
)

var (
	firstNames = []string{"Asha", "Vikram", "Neha", "Rohan", "Priya", "Arjun", "Kavya", "Imran", "Meera", "Dev", "Sana", "Kabir"}
	lastNames  = []string{"Rao", "Das", "Iyer", "Khan", "Mehta", "Singh", "Nair", "Gupta", "Bose", "Kapoor"}
)

// Header is the first row of every generated sheet.
var Header = []any{
	model.HeaderUserID, model.HeaderDate, model.HeaderName, model.HeaderPOC,
	model.HeaderPotential, model.HeaderLast30Days, model.HeaderShortFall,
}

// Generate returns a header row followed by n data rows spread round-robin
// over pocs POC names. The same seed yields the same sheet apart from the
// user IDs, which are random.
func Generate(n, pocs int, seed uint64, date time.Time) ([][]any, error) {
	if n <= 0 {
		return nil, fmt.Errorf("rows must be positive, got %d", n)
	}
	if pocs <= 0 {
		return nil, fmt.Errorf("pocs must be positive, got %d", pocs)
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	names := pocNames(rng, pocs)
	day := date.Format("02/01/2006")

	rows := make([][]any, 0, n+1)
	rows = append(rows, Header)
	for i := 0; i < n; i++ {
		potential := float64(500 + rng.IntN(20)*250)
		last30 := scoring.Round2(potential * achievement(rng))
		rows = append(rows, []any{
			"U" + strings.ToUpper(uuid.NewString()[:8]),
			day,
			personName(rng),
			names[i%len(names)],
			potential,
			last30,
			scoring.Round2(potential - last30),
		})
	}
	return rows, nil
}

// Underperforming counts the generated data rows below the threshold.
func Underperforming(rows [][]any) int {
	n := 0
	for _, r := range rows[1:] {
		last30, _ := r[5].(float64)
		potential, _ := r[4].(float64)
		if scoring.IsUnderperforming(scoring.ProRatedAch(last30, potential)) {
			n++
		}
	}
	return n
}

// achievement draws a last-30-days to potential ratio.
func achievement(rng *rand.Rand) float64 {
	switch rng.IntN(caseCount) {
	case caseStruggling:
		return 0.05 + rng.Float64()*0.25
	case caseBelowPar:
		return 0.3 + rng.Float64()*0.2
	case caseOnTrack:
		return 0.5 + rng.Float64()*0.3
	case caseStrong:
		return 0.8 + rng.Float64()*0.2
	case caseOverAchiever:
		return 1 + rng.Float64()*0.5
	default:
		return 0
	}
}

func pocNames(rng *rand.Rand, n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		name := personName(rng)
		if _, ok := seen[name]; ok {
			name = fmt.Sprintf("%s %d", name, len(out)+1)
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func personName(rng *rand.Rand) string {
	return firstNames[rng.IntN(len(firstNames))] + " " + lastNames[rng.IntN(len(lastNames))]
}
