package gate

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"

	"github.com/playperu/huntgate/internal/hunt"
)

// pcgStream fixes the PCG increment so a seed alone determines the stream.
const pcgStream = 0x9e3779b97f4a7c15

// Permute returns a Fisher–Yates shuffle of stopIDs driven by seed, with
// positions numbered from 1. The same ids in the same order with the same
// seed always produce the same permutation.
func Permute(stopIDs []string, seed int64) []hunt.StopPosition {
	ids := make([]string, len(stopIDs))
	copy(ids, stopIDs)

	rng := rand.New(rand.NewPCG(uint64(seed), pcgStream))
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}

	order := make([]hunt.StopPosition, len(ids))
	for i, id := range ids {
		order[i] = hunt.StopPosition{StopID: id, Position: i + 1}
	}
	return order
}

// TeamSeed returns the team's persisted seed, or a stable hash of its id and
// creation time for teams provisioned without one.
func TeamSeed(t hunt.Team) int64 {
	if t.OrderSeed != 0 {
		return t.OrderSeed
	}
	h := fnv.New64a()
	h.Write([]byte(t.ID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(t.CreatedAt.UnixNano(), 10)))
	return int64(h.Sum64())
}
