package service

import (
	"testing"

	"github.com/kartikasari/ujianku/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func uintPtr(v uint) *uint { return &v }

// buildMixedExam returns two grouped clusters plus standalone questions in
// authored order.
func buildMixedExam() ([]model.Question, []model.QuestionGroup) {
	reading := model.QuestionGroup{ID: 1, ExamID: 1, Title: "Reading Passage"}
	listening := model.QuestionGroup{ID: 2, ExamID: 1, Title: "Listening"}

	questions := []model.Question{
		{ID: 1, Type: model.QuestionSingleChoice, OrderInExam: 1},
		{ID: 2, GroupID: uintPtr(1), Group: &reading, Type: model.QuestionSingleChoice, OrderInExam: 2},
		{ID: 3, GroupID: uintPtr(1), Group: &reading, Type: model.QuestionTrueFalse, OrderInExam: 3},
		{ID: 4, GroupID: uintPtr(1), Group: &reading, Type: model.QuestionFillBlank, OrderInExam: 4},
		{ID: 5, Type: model.QuestionFreeText, OrderInExam: 5},
		{ID: 6, GroupID: uintPtr(2), Group: &listening, Type: model.QuestionSingleChoice, OrderInExam: 6},
		{ID: 7, GroupID: uintPtr(2), Group: &listening, Type: model.QuestionSingleChoice, OrderInExam: 7},
		{ID: 8, Type: model.QuestionMatching, OrderInExam: 8},
	}
	return questions, []model.QuestionGroup{reading, listening}
}

func questionIDs(questions []model.Question) []uint {
	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

// assertGroupsContiguous fails if any group's questions are interleaved with
// questions outside that group.
func assertGroupsContiguous(t *testing.T, questions []model.Question) {
	t.Helper()
	lastEnd := make(map[uint]int)
	for i, q := range questions {
		if q.GroupID == nil || q.Group == nil {
			continue
		}
		if end, seen := lastEnd[*q.GroupID]; seen {
			require.Equal(t, end+1, i, "group %d broken at position %d", *q.GroupID, i)
		}
		lastEnd[*q.GroupID] = i
	}
}

func TestRandomizeDisabledPreservesOrder(t *testing.T) {
	questions, _ := buildMixedExam()
	s := newRandomizerWithSeed(1)

	out := s.Randomize(questions, false, false)
	assert.Equal(t, questionIDs(questions), questionIDs(out))
}

func TestRandomizeDoesNotMutateInput(t *testing.T) {
	questions, _ := buildMixedExam()
	original := questionIDs(questions)
	s := newRandomizerWithSeed(2)

	s.Randomize(questions, true, true)
	assert.Equal(t, original, questionIDs(questions))
}

func TestRandomizeKeepsGroupsContiguous(t *testing.T) {
	questions, _ := buildMixedExam()

	for seed := int64(0); seed < 50; seed++ {
		s := newRandomizerWithSeed(seed)
		out := s.Randomize(questions, true, false)

		require.Len(t, out, len(questions))
		assert.ElementsMatch(t, questionIDs(questions), questionIDs(out))
		assertGroupsContiguous(t, out)
	}
}

func TestRandomizeShufflesAcrossSeeds(t *testing.T) {
	questions, _ := buildMixedExam()
	baseline := questionIDs(questions)

	changed := false
	for seed := int64(0); seed < 20; seed++ {
		out := newRandomizerWithSeed(seed).Randomize(questions, true, false)
		if !assert.ObjectsAreEqual(baseline, questionIDs(out)) {
			changed = true
			break
		}
	}
	assert.True(t, changed, "20 shuffles never changed the order")
}

func TestRandomizeOrphanedGroupQuestionIsStandalone(t *testing.T) {
	// GroupID survives the group's deletion; Group no longer resolves.
	questions := []model.Question{
		{ID: 1, Type: model.QuestionSingleChoice},
		{ID: 2, GroupID: uintPtr(9), Type: model.QuestionSingleChoice},
		{ID: 3, GroupID: uintPtr(9), Type: model.QuestionSingleChoice},
	}

	for seed := int64(0); seed < 20; seed++ {
		out := newRandomizerWithSeed(seed).Randomize(questions, true, false)
		require.Len(t, out, 3)
		assert.ElementsMatch(t, []uint{1, 2, 3}, questionIDs(out))
	}
}

func TestRandomizeOptionsKeepKeyLabelBinding(t *testing.T) {
	question := model.Question{
		ID:            1,
		Type:          model.QuestionSingleChoice,
		CorrectAnswer: "C",
		Options: datatypes.JSONSlice[model.Option]{
			{Key: "A", Label: "Medan"},
			{Key: "B", Label: "Surabaya"},
			{Key: "C", Label: "Jakarta"},
			{Key: "D", Label: "Makassar"},
		},
	}

	for seed := int64(0); seed < 20; seed++ {
		out := newRandomizerWithSeed(seed).Randomize([]model.Question{question}, false, true)
		require.Len(t, out[0].Options, 4)

		labels := make(map[string]string)
		for _, opt := range out[0].Options {
			labels[opt.Key] = opt.Label
		}
		assert.Equal(t, "Jakarta", labels["C"], "correct key must keep its label")
		assert.Len(t, labels, 4)
	}
}

func TestRandomizeOptionsSkipsNonChoiceTypes(t *testing.T) {
	options := datatypes.JSONSlice[model.Option]{
		{Key: "A1", Label: "left side"},
		{Key: "B1", Label: "right side"},
		{Key: "A2", Label: "left side 2"},
	}
	question := model.Question{ID: 1, Type: model.QuestionMatching, Options: options}

	out := newRandomizerWithSeed(3).Randomize([]model.Question{question}, false, true)
	assert.Equal(t, options, out[0].Options)
}

func TestRandomizeOptionsSkipsSingleOption(t *testing.T) {
	question := model.Question{
		ID:      1,
		Type:    model.QuestionSingleChoice,
		Options: datatypes.JSONSlice[model.Option]{{Key: "A", Label: "only"}},
	}
	out := newRandomizerWithSeed(4).Randomize([]model.Question{question}, false, true)
	assert.Len(t, out[0].Options, 1)
}

func TestValidateGroups(t *testing.T) {
	questions, groups := buildMixedExam()
	s := newRandomizerWithSeed(5)

	assert.Empty(t, s.ValidateGroups(groups, questions))

	orphan := append(groups, model.QuestionGroup{ID: 3, ExamID: 1, Title: "Empty Section"})
	assert.Equal(t, []uint{3}, s.ValidateGroups(orphan, questions))
}

func TestRandomizeOrdersGroupMembersByGroupOrder(t *testing.T) {
	story := model.QuestionGroup{ID: 9, ExamID: 1, Title: "Story"}
	questions := []model.Question{
		{ID: 1, Type: model.QuestionSingleChoice, OrderInExam: 1},
		{ID: 2, GroupID: uintPtr(9), Group: &story, GroupOrder: 3, Type: model.QuestionSingleChoice, OrderInExam: 2},
		{ID: 3, GroupID: uintPtr(9), Group: &story, GroupOrder: 1, Type: model.QuestionSingleChoice, OrderInExam: 3},
		{ID: 4, GroupID: uintPtr(9), Group: &story, GroupOrder: 2, Type: model.QuestionTrueFalse, OrderInExam: 4},
	}

	t.Run("without shuffling", func(t *testing.T) {
		out := newRandomizerWithSeed(3).Randomize(questions, false, false)
		assert.Equal(t, []uint{1, 3, 4, 2}, questionIDs(out))
	})

	t.Run("with shuffling", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			out := newRandomizerWithSeed(seed).Randomize(questions, true, false)

			var members []uint
			for _, q := range out {
				if q.GroupID != nil {
					members = append(members, q.ID)
				}
			}
			assert.Equal(t, []uint{3, 4, 2}, members, "seed %d", seed)
		}
	})
}
