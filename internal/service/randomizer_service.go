package service

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/kartikasari/ujianku/internal/model"
)

// RandomizerService produces the presentation order for an exam instance.
// Grouped questions stay contiguous in the output regardless of shuffle
// flags; two groups' questions are never interleaved.
type RandomizerService interface {
	Randomize(questions []model.Question, randomizeQuestions, randomizeAnswers bool) []model.Question
	// ValidateGroups reports group ids with no member questions, for
	// diagnostics. It never errors.
	ValidateGroups(groups []model.QuestionGroup, questions []model.Question) []uint
}

type randomizerService struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomizerService() RandomizerService {
	return &randomizerService{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// newRandomizerWithSeed keeps shuffle runs reproducible in tests.
func newRandomizerWithSeed(seed int64) *randomizerService {
	return &randomizerService{rng: rand.New(rand.NewSource(seed))}
}

func (s *randomizerService) Randomize(questions []model.Question, randomizeQuestions, randomizeAnswers bool) []model.Question {
	out := s.arrangeBlocks(questions, randomizeQuestions)

	if randomizeAnswers {
		for i := range out {
			out[i].Options = s.shuffleOptions(out[i])
		}
	}
	return out
}

// arrangeBlocks partitions the input into presentation blocks: each group
// cluster is one block, each standalone question its own block. Group
// members always follow their authored group_order; shuffling moves whole
// blocks only. A question whose group no longer resolves degrades to
// standalone.
func (s *randomizerService) arrangeBlocks(questions []model.Question, shuffle bool) []model.Question {
	var blocks [][]model.Question
	groupIdx := make(map[uint]int)

	for _, q := range questions {
		if q.GroupID != nil && q.Group != nil {
			if idx, ok := groupIdx[*q.GroupID]; ok {
				blocks[idx] = append(blocks[idx], q)
				continue
			}
			groupIdx[*q.GroupID] = len(blocks)
		}
		blocks = append(blocks, []model.Question{q})
	}

	for _, block := range blocks {
		if len(block) > 1 {
			sort.SliceStable(block, func(i, j int) bool {
				return block[i].GroupOrder < block[j].GroupOrder
			})
		}
	}

	if shuffle {
		s.mu.Lock()
		s.rng.Shuffle(len(blocks), func(i, j int) {
			blocks[i], blocks[j] = blocks[j], blocks[i]
		})
		s.mu.Unlock()
	}

	out := make([]model.Question, 0, len(questions))
	for _, block := range blocks {
		out = append(out, block...)
	}
	return out
}

// shuffleOptions permutes option order for choice questions. Each key stays
// bound to its label, so the correct-answer key still resolves afterwards.
func (s *randomizerService) shuffleOptions(q model.Question) []model.Option {
	if q.Type != model.QuestionSingleChoice && q.Type != model.QuestionTrueFalse {
		return q.Options
	}
	if len(q.Options) < 2 {
		return q.Options
	}

	shuffled := make([]model.Option, len(q.Options))
	copy(shuffled, q.Options)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

func (s *randomizerService) ValidateGroups(groups []model.QuestionGroup, questions []model.Question) []uint {
	members := make(map[uint]int)
	for _, q := range questions {
		if q.GroupID != nil {
			members[*q.GroupID]++
		}
	}

	var empty []uint
	for _, g := range groups {
		if members[g.ID] == 0 {
			empty = append(empty, g.ID)
		}
	}
	return empty
}
