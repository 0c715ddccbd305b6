package model_selection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/core/parallel"
	"github.com/delvitaw/obesity/dataset"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
)

// Estimator is a frame-level classifier that can be cloned, configured and
// scored. *pipeline.Pipeline implements it.
type Estimator interface {
	FitContext(ctx context.Context, f *dataset.Frame, y []string) error
	Score(f *dataset.Frame, y []string) (float64, error)
	SetParams(params map[string]interface{}) error
	CloneEstimator() interface{}
}

// CVResults holds one entry per sampled candidate, in sampling order.
type CVResults struct {
	Params        []map[string]interface{}
	SplitScores   [][]float64 // [candidate][fold]
	MeanTestScore []float64
	StdTestScore  []float64
	RankTestScore []int
	MeanFitTime   []time.Duration
}

// RandomizedSearchCV evaluates NIter parameter combinations sampled from
// ParamDistributions with stratified CV-fold cross-validation, scoring by
// accuracy. The best combination is refit on all of the data.
type RandomizedSearchCV struct {
	Estimator          Estimator
	ParamDistributions ParamDistributions
	NIter              int
	CV                 int
	NJobs              int
	RandomState        int64
	Refit              bool

	BestParams    map[string]interface{}
	BestScore     float64
	BestIndex     int
	BestEstimator Estimator
	CVResults     CVResults

	logger log.Logger
}

// NewRandomizedSearchCV creates a search with 10 iterations, 5 folds, all
// CPUs and refit enabled.
func NewRandomizedSearchCV(est Estimator, dist ParamDistributions) *RandomizedSearchCV {
	return &RandomizedSearchCV{
		Estimator:          est,
		ParamDistributions: dist,
		NIter:              10,
		CV:                 5,
		NJobs:              -1,
		Refit:              true,
		BestIndex:          -1,
		logger:             log.GetLoggerWithName("model_selection").With(log.ModelNameKey, "RandomizedSearchCV"),
	}
}

// SetLogger replaces the search logger.
func (s *RandomizedSearchCV) SetLogger(l log.Logger) { s.logger = l }

func (s *RandomizedSearchCV) getLogger() log.Logger {
	if s.logger == nil {
		return log.Nop()
	}
	return s.logger
}

func (s *RandomizedSearchCV) newCandidate(params map[string]interface{}) (Estimator, error) {
	clone, ok := s.Estimator.CloneEstimator().(Estimator)
	if !ok {
		return nil, errors.NewValueError("RandomizedSearchCV", "estimator clone does not implement Estimator")
	}
	if err := clone.SetParams(params); err != nil {
		return nil, err
	}
	return clone, nil
}

// Fit runs the search on f and y.
func (s *RandomizedSearchCV) Fit(ctx context.Context, f *dataset.Frame, y []string) (err error) {
	defer errors.Recover(&err, "RandomizedSearchCV.Fit")
	if s.Estimator == nil {
		return errors.NewValueError("RandomizedSearchCV.Fit", "estimator is nil")
	}
	if f.Len() != len(y) {
		return errors.NewDimensionError("RandomizedSearchCV.Fit", f.Len(), len(y), 0)
	}

	candidates, err := ParameterSampler(s.ParamDistributions, s.NIter, s.RandomState)
	if err != nil {
		return err
	}
	splits, err := NewStratifiedKFold(s.CV).Split(y)
	if err != nil {
		return err
	}
	// Every candidate must at least be configurable before any fit starts.
	for _, params := range candidates {
		if _, err := s.newCandidate(params); err != nil {
			return errors.Wrapf(err, "candidate %s", FormatParams(params))
		}
	}

	nFolds := len(splits)
	total := len(candidates) * nFolds
	s.getLogger().Info(fmt.Sprintf("Fitting %d folds for each of %d candidates, totalling %d fits", nFolds, len(candidates), total))

	folds := make([]struct {
		trainX, testX *dataset.Frame
		trainY, testY []string
	}, nFolds)
	for i, sp := range splits {
		folds[i].trainX = f.Take(sp.Train)
		folds[i].testX = f.Take(sp.Test)
		folds[i].trainY = takeStrings(y, sp.Train)
		folds[i].testY = takeStrings(y, sp.Test)
	}

	scores := make([][]float64, len(candidates))
	fitTimes := make([][]time.Duration, len(candidates))
	for i := range scores {
		scores[i] = make([]float64, nFolds)
		fitTimes[i] = make([]time.Duration, nFolds)
	}

	var done atomic.Int64
	err = parallel.ForEach(ctx, total, parallel.Workers(s.NJobs), func(ctx context.Context, job int) error {
		c, k := job/nFolds, job%nFolds
		est, err := s.newCandidate(candidates[c])
		if err != nil {
			return err
		}
		start := time.Now()
		if err := est.FitContext(ctx, folds[k].trainX, folds[k].trainY); err != nil {
			return errors.Wrapf(err, "candidate %d fold %d", c, k)
		}
		fitTimes[c][k] = time.Since(start)
		score, err := est.Score(folds[k].testX, folds[k].testY)
		if err != nil {
			return errors.Wrapf(err, "scoring candidate %d fold %d", c, k)
		}
		scores[c][k] = score
		s.getLogger().Debug("CV fit done",
			log.CandidateKey, c,
			log.FoldKey, k,
			log.ScoreKey, score,
			"progress", fmt.Sprintf("%d/%d", done.Add(1), total),
		)
		return nil
	})
	if err != nil {
		return err
	}

	s.CVResults = buildResults(candidates, scores, fitTimes)
	s.BestIndex = 0
	for i, r := range s.CVResults.RankTestScore {
		if r == 1 {
			s.BestIndex = i
			break
		}
	}
	s.BestParams = candidates[s.BestIndex]
	s.BestScore = s.CVResults.MeanTestScore[s.BestIndex]
	s.getLogger().Info("Search finished",
		"best_params", FormatParams(s.BestParams),
		log.ScoreKey, s.BestScore,
	)

	if !s.Refit {
		return nil
	}
	best, err := s.newCandidate(s.BestParams)
	if err != nil {
		return err
	}
	if err := best.FitContext(ctx, f, y); err != nil {
		return errors.Wrap(err, "refitting best estimator")
	}
	s.BestEstimator = best
	return nil
}

func buildResults(candidates []map[string]interface{}, scores [][]float64, fitTimes [][]time.Duration) CVResults {
	n := len(candidates)
	res := CVResults{
		Params:        candidates,
		SplitScores:   scores,
		MeanTestScore: make([]float64, n),
		StdTestScore:  make([]float64, n),
		RankTestScore: make([]int, n),
		MeanFitTime:   make([]time.Duration, n),
	}
	for i := range candidates {
		res.MeanTestScore[i], res.StdTestScore[i] = stat.PopMeanStdDev(scores[i], nil)
		var sum time.Duration
		for _, d := range fitTimes[i] {
			sum += d
		}
		res.MeanFitTime[i] = sum / time.Duration(len(fitTimes[i]))
	}

	// Ties share the lowest rank.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return res.MeanTestScore[order[a]] > res.MeanTestScore[order[b]]
	})
	for pos, idx := range order {
		if pos > 0 && res.MeanTestScore[idx] == res.MeanTestScore[order[pos-1]] {
			res.RankTestScore[idx] = res.RankTestScore[order[pos-1]]
		} else {
			res.RankTestScore[idx] = pos + 1
		}
	}
	return res
}

// Ranked returns candidate indices from best to worst.
func (r CVResults) Ranked() []int {
	order := make([]int, len(r.RankTestScore))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return r.RankTestScore[order[a]] < r.RankTestScore[order[b]]
	})
	return order
}

// FormatParams renders params as "{a: 1, b: None}" with sorted keys.
func FormatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", k, model.FormatParam(k, params[k]))
	}
	sb.WriteByte('}')
	return sb.String()
}

func takeStrings(src []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}
