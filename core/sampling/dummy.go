package sampling

import (
	"math/rand/v2"
	"time"

	"github.com/strata-analytics/strata/core/frame"
)

var dummyCities = []string{"Tbilisi", "Kutaisi", "Batumi"}

// GenerateDummyData builds a synthetic telecom customer sample for trying
// out stratified splits without touching the warehouse: age, city of
// residence, sex, ARPU (average revenue per user) and data consumption in
// GB, plus a second consumption column reserved for stratification.
func GenerateDummyData(n int, rng *rand.Rand) *frame.Frame {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}

	f := frame.New([]string{
		"age", "city", "sex", "arpu",
		"data_consumption", "data_consumption_stratified",
	})

	for i := 0; i < n; i++ {
		sex := "M"
		if rng.IntN(2) == 1 {
			sex = "F"
		}
		_ = f.AppendRow([]any{
			18 + rng.IntN(47), // 18..64
			dummyCities[rng.IntN(len(dummyCities))],
			sex,
			150 + rng.Float64()*450,
			1 + rng.Float64()*99,
			1 + rng.Float64()*99,
		})
	}
	return f
}
