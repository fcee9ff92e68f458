package podds

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/richard-senior/podds/internal/logger"
	"golang.org/x/sync/errgroup"
)

// ChunkSize is the number of matches each parallel sub-stream simulates.
const ChunkSize = 1000

// ProgressFunc receives the fraction of the run completed, in [0, 1].
type ProgressFunc func(fraction float64)

// Population is the ordered set of simulated matches for one prediction.
type Population struct {
	Results []MatchResult `json:"results"`
	Seed    uint64        `json:"seed"`
}

func (p *Population) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Results)
}

// SimulationEngine repeatedly draws a posterior index and plays a match.
type SimulationEngine struct {
	sim      MatchSimulator
	interval int
}

func NewSimulationEngine(cfg *PoddsConfig) *SimulationEngine {
	return &SimulationEngine{sim: NewMatchSimulator(cfg), interval: cfg.ProgressInterval}
}

func checkRun(post *Posterior, n int) error {
	if post.Len() == 0 {
		return ErrEmptyPosterior
	}
	if n < 1 {
		return ErrInvalidSimulationCount
	}
	return nil
}

// SimulatePopulation runs n matches on a single random stream seeded by seed.
// Each iteration picks a posterior draw uniformly with replacement. progress,
// if set, is called every interval iterations and once with 1.0 at the end;
// it never touches the random stream.
func (e *SimulationEngine) SimulatePopulation(post *Posterior, n int, seed uint64, progress ProgressFunc) (*Population, error) {
	if err := checkRun(post, n); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(seed, 0))
	pop := &Population{Results: make([]MatchResult, n), Seed: seed}
	size := post.Len()
	for i := range n {
		if progress != nil && i%e.interval == 0 {
			progress(float64(i) / float64(n))
		}
		pop.Results[i] = e.sim.Simulate(post.Draw(rng.IntN(size)), rng)
	}
	if progress != nil {
		progress(1.0)
	}
	logger.Debug("Simulated matches", n)
	return pop, nil
}

// SimulatePopulationParallel splits the run into chunks of ChunkSize matches.
// Chunk c uses its own stream seeded with (seed, c+1), so the result depends
// on seed and n only, never on workers. progress is called after each chunk
// from one goroutine at a time.
func (e *SimulationEngine) SimulatePopulationParallel(ctx context.Context, post *Posterior, n int, seed uint64, workers int, progress ProgressFunc) (*Population, error) {
	if err := checkRun(post, n); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	pop := &Population{Results: make([]MatchResult, n), Seed: seed}
	size := post.Len()
	chunks := (n + ChunkSize - 1) / ChunkSize

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, uint64(c)+1))
			end := min((c+1)*ChunkSize, n)
			for i := c * ChunkSize; i < end; i++ {
				pop.Results[i] = e.sim.Simulate(post.Draw(rng.IntN(size)), rng)
			}
			if progress != nil {
				mu.Lock()
				done += end - c*ChunkSize
				if done < n {
					progress(float64(done) / float64(n))
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(1.0)
	}
	logger.Debug("Simulated matches in parallel", n, chunks, workers)
	return pop, nil
}
