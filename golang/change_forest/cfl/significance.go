package cfl

import (
	"context"
	"math/rand"
)

//derivedSeed mixes a seed with the coordinates of a random draw (splitmix64 finalizer),
//so every draw owns its generator and results do not depend on scheduling.
func derivedSeed(seed int64, coordinates ...int64) int64 {
	z := uint64(seed)
	for _, c := range coordinates {
		z += 0x9e3779b97f4a7c15 + uint64(c)
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
	}
	return int64(z)
}

//random streams of a run
const (
	streamForest int64 = iota + 1
	streamPermutation
)

//PermutationTest estimates p-values from draws of the maximal gain under the null.
type PermutationTest struct {
	NPermutations int
	Seed          int64
	pool          *Pool
}

//PValue returns (1 + #{null draws >= observed}) / (P + 1). Draw j of segment uses its own
//generator, so the value is the same for any number of workers. It is never below 1/(P+1).
func (pt PermutationTest) PValue(ctx context.Context, segment Segment, sampler NullSampler, observed float64) (float64, error) {
	null := make([]float64, pt.NPermutations)
	err := pt.pool.ForEach(ctx, pt.NPermutations, func(_ context.Context, j int) error {
		rng := rand.New(rand.NewSource(derivedSeed(pt.Seed, streamPermutation, int64(segment.Start), int64(segment.Stop), int64(j))))
		null[j] = sampler.Draw(rng)
		return nil
	})
	if err != nil {
		return 0, err
	}

	exceed := 1
	for _, gain := range null {
		if gain >= observed {
			exceed++
		}
	}
	return float64(exceed) / float64(pt.NPermutations+1), nil
}
