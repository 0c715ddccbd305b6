// Package tree implements a CART decision tree classifier.
//
// Missing feature values (NaN) are routed to the right child both while
// growing the tree and while predicting, so a row with a missing BMI is
// treated the same way at training and inference time.
package tree

import (
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/delvitaw/obesity/core/model"
	"github.com/delvitaw/obesity/pkg/errors"
)

func init() {
	gob.Register(&DecisionTreeClassifier{})
}

// TreeNode represents a node in the decision tree
type TreeNode struct {
	IsLeaf       bool      // Whether this is a leaf node
	Feature      int       // Feature index for split (internal nodes)
	Threshold    float64   // Threshold value for split (internal nodes)
	Left         *TreeNode // Left child (values <= threshold)
	Right        *TreeNode // Right child (values > threshold or missing)
	ClassCounts  []int     // Training samples per class reaching this node
	PredictClass int       // Majority class code
	Impurity     float64   // Node impurity
	NSamples     int       // Number of samples at this node
	Depth        int       // Depth of this node in the tree
}

// GoesLeft reports whether a feature value follows the left branch of a
// split at threshold. NaN always goes right.
func GoesLeft(value, threshold float64) bool {
	return !math.IsNaN(value) && value <= threshold
}

// Dataset is a column-major copy of a training matrix. A forest builds it
// once and shares it read-only between its trees.
type Dataset struct {
	Columns  [][]float64 // Columns[feature][sample]
	Y        []int       // class codes in [0, NClasses)
	NClasses int
}

// NewDataset copies X into column-major form.
func NewDataset(X mat.Matrix, y []int, nClasses int) (*Dataset, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("tree.NewDataset", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return nil, errors.NewDimensionError("tree.NewDataset", r, len(y), 0)
	}
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = make([]float64, r)
		for i := 0; i < r; i++ {
			cols[j][i] = X.At(i, j)
		}
	}
	for i, code := range y {
		if code < 0 || code >= nClasses {
			return nil, errors.NewValueError("tree.NewDataset", fmt.Sprintf("class code %d at row %d out of range [0, %d)", code, i, nClasses))
		}
	}
	return &Dataset{Columns: cols, Y: y, NClasses: nClasses}, nil
}

// NSamples returns the number of rows.
func (d *Dataset) NSamples() int { return len(d.Y) }

// NFeatures returns the number of columns.
func (d *Dataset) NFeatures() int { return len(d.Columns) }

// DecisionTreeClassifier implements a decision tree for classification.
// Fields are exported so a fitted tree can be gob encoded.
type DecisionTreeClassifier struct {
	model.BaseEstimator

	// Hyperparameters
	Criterion           string  // Splitting criterion: "gini", "entropy"
	MaxDepth            int     // Maximum depth of tree (0 = unlimited)
	MinSamplesSplit     int     // Minimum samples to split a node
	MinSamplesLeaf      int     // Minimum samples in a leaf
	MaxFeatures         string  // Features per split: "all", "sqrt", "log2" or an integer
	MinImpurityDecrease float64 // Minimum impurity decrease for split
	RandomState         int64   // Random seed; negative seeds from the clock

	// Tree structure
	Root      *TreeNode
	NClasses  int
	NFeatures int
	Classes   []int // Class labels as passed to Fit, indexed by class code

	FeatureImportances []float64
}

// DecisionTreeClassifierOption is a functional option
type DecisionTreeClassifierOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new decision tree classifier
func NewDecisionTreeClassifier(opts ...DecisionTreeClassifierOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		Criterion:       "gini",
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "all",
		RandomState:     -1,
	}
	dt.ModelType = "DecisionTreeClassifier"

	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the splitting criterion
func WithCriterion(criterion string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.Criterion = criterion
	}
}

// WithMaxDepth sets the maximum tree depth
func WithMaxDepth(depth int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.MaxDepth = depth
	}
}

// WithMinSamplesSplit sets minimum samples to split
func WithMinSamplesSplit(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets minimum samples in leaf
func WithMinSamplesLeaf(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.MinSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are drawn at each split
func WithMaxFeatures(maxFeatures string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.MaxFeatures = maxFeatures
	}
}

// WithDTRandomState sets the random seed
func WithDTRandomState(seed int64) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.RandomState = seed
	}
}

func (dt *DecisionTreeClassifier) validate() error {
	switch {
	case dt.Criterion != "gini" && dt.Criterion != "entropy":
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.Criterion)
	case dt.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0 (0 means unlimited)", dt.MaxDepth)
	case dt.MinSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.MinSamplesSplit)
	case dt.MinSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.MinSamplesLeaf)
	case dt.MinImpurityDecrease < 0:
		return errors.NewValidationError("min_impurity_decrease", "must be >= 0", dt.MinImpurityDecrease)
	}
	if _, err := ResolveMaxFeatures(dt.MaxFeatures, 1); err != nil {
		return err
	}
	return nil
}

// ResolveMaxFeatures returns the number of features to draw per split out
// of nFeatures.
func ResolveMaxFeatures(spec string, nFeatures int) (int, error) {
	var k int
	switch spec {
	case "", "all", "auto", "None":
		k = nFeatures
	case "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		k = int(math.Log2(float64(nFeatures)))
	default:
		n, err := strconv.Atoi(spec)
		if err != nil || n < 1 {
			return 0, errors.NewValidationError("max_features", "must be 'all', 'sqrt', 'log2' or a positive integer", spec)
		}
		k = n
	}
	if k < 1 {
		k = 1
	}
	if k > nFeatures {
		k = nFeatures
	}
	return k, nil
}

// Fit trains the decision tree on X and a single-column y of class labels.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")
	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples != yRows {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}

	classes, codes := EncodeClasses(y)
	data, err := NewDataset(X, codes, len(classes))
	if err != nil {
		return err
	}
	samples := make([]int, nSamples)
	for i := range samples {
		samples[i] = i
	}
	if err := dt.FitDataset(data, samples); err != nil {
		return err
	}
	dt.Classes = classes
	return nil
}

// FitDataset grows the tree on the rows of data listed in samples. Rows may
// repeat, which is how bootstrap samples are expressed. Class codes are
// used as labels.
func (dt *DecisionTreeClassifier) FitDataset(data *Dataset, samples []int) error {
	if err := dt.validate(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "no samples", errors.ErrEmptyData)
	}

	dt.NClasses = data.NClasses
	dt.NFeatures = data.NFeatures()
	dt.Classes = make([]int, data.NClasses)
	for i := range dt.Classes {
		dt.Classes[i] = i
	}
	dt.FeatureImportances = make([]float64, dt.NFeatures)

	seed := dt.RandomState
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	maxFeatures, err := ResolveMaxFeatures(dt.MaxFeatures, dt.NFeatures)
	if err != nil {
		return err
	}

	b := &builder{
		dt:          dt,
		data:        data,
		rng:         rand.New(rand.NewSource(seed)),
		maxFeatures: maxFeatures,
	}
	dt.Root = b.build(samples, 0)
	dt.normalizeFeatureImportances()

	dt.SetFitted()
	return nil
}

// EncodeClasses returns the sorted distinct labels of the single-column y
// and the code (index into the labels) of every row.
func EncodeClasses(y mat.Matrix) ([]int, []int) {
	rows, _ := y.Dims()
	seen := make(map[int]bool)
	for i := 0; i < rows; i++ {
		seen[int(y.At(i, 0))] = true
	}
	classes := make([]int, 0, len(seen))
	for class := range seen {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	codes := make([]int, rows)
	for i := range codes {
		codes[i] = index[int(y.At(i, 0))]
	}
	return classes, codes
}

type builder struct {
	dt          *DecisionTreeClassifier
	data        *Dataset
	rng         *rand.Rand
	maxFeatures int
}

type split struct {
	feature   int
	threshold float64
	decrease  float64
}

// build recursively grows the subtree for samples.
func (b *builder) build(samples []int, depth int) *TreeNode {
	dt := b.dt
	classCounts := make([]int, dt.NClasses)
	for _, s := range samples {
		classCounts[b.data.Y[s]]++
	}

	predictClass := 0
	for i, count := range classCounts {
		if count > classCounts[predictClass] {
			predictClass = i
		}
	}

	impurity := dt.calculateImpurity(classCounts)
	node := &TreeNode{
		ClassCounts:  classCounts,
		PredictClass: predictClass,
		Impurity:     impurity,
		NSamples:     len(samples),
		Depth:        depth,
	}

	if dt.shouldStop(len(samples), impurity, depth) {
		node.IsLeaf = true
		return node
	}

	best, ok := b.findBestSplit(samples, classCounts, impurity)
	if !ok || best.decrease < dt.MinImpurityDecrease {
		node.IsLeaf = true
		return node
	}

	col := b.data.Columns[best.feature]
	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, s := range samples {
		if GoesLeft(col[s], best.threshold) {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	node.Feature = best.feature
	node.Threshold = best.threshold
	dt.FeatureImportances[best.feature] += best.decrease * float64(len(samples))

	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

// shouldStop checks stopping criteria
func (dt *DecisionTreeClassifier) shouldStop(nSamples int, impurity float64, depth int) bool {
	if dt.MaxDepth > 0 && depth >= dt.MaxDepth {
		return true
	}
	if nSamples < dt.MinSamplesSplit || nSamples < 2*dt.MinSamplesLeaf {
		return true
	}
	return impurity == 0.0
}

// calculateImpurity calculates node impurity using Gini or Entropy
func (dt *DecisionTreeClassifier) calculateImpurity(classCounts []int) float64 {
	total := 0
	for _, count := range classCounts {
		total += count
	}
	if total == 0 {
		return 0.0
	}

	impurity := 0.0
	switch dt.Criterion {
	case "entropy":
		// Entropy: -sum(p_i * log2(p_i))
		for _, count := range classCounts {
			if count > 0 {
				p := float64(count) / float64(total)
				impurity -= p * math.Log2(p)
			}
		}
	default:
		// Gini impurity: 1 - sum(p_i^2)
		sumSquared := 0.0
		for _, count := range classCounts {
			if count > 0 {
				p := float64(count) / float64(total)
				sumSquared += p * p
			}
		}
		impurity = 1.0 - sumSquared
	}
	return impurity
}

// findBestSplit draws features in random order and evaluates the first
// maxFeatures of them. If none yields a valid split it keeps drawing until
// one does or the features run out.
func (b *builder) findBestSplit(samples []int, parentCounts []int, parentImpurity float64) (split, bool) {
	best := split{feature: -1}
	features := b.rng.Perm(b.data.NFeatures())

	for visited, feature := range features {
		if visited >= b.maxFeatures && best.feature >= 0 {
			break
		}
		s, ok := b.bestSplitOnFeature(feature, samples, parentCounts, parentImpurity)
		if ok && (best.feature < 0 || s.decrease > best.decrease) {
			best = s
		}
	}
	return best, best.feature >= 0
}

// bestSplitOnFeature sorts the non-missing values of feature and sweeps the
// thresholds between distinct neighbours. Missing values stay on the right.
func (b *builder) bestSplitOnFeature(feature int, samples []int, parentCounts []int, parentImpurity float64) (split, bool) {
	dt := b.dt
	col := b.data.Columns[feature]

	present := make([]int, 0, len(samples))
	for _, s := range samples {
		if !math.IsNaN(col[s]) {
			present = append(present, s)
		}
	}
	if len(present) == 0 {
		return split{}, false
	}
	sort.Slice(present, func(i, j int) bool { return col[present[i]] < col[present[j]] })

	n := len(samples)
	leftCounts := make([]int, dt.NClasses)
	rightCounts := make([]int, dt.NClasses)
	copy(rightCounts, parentCounts)

	best := split{feature: -1}
	consider := func(nLeft int, threshold float64) {
		nRight := n - nLeft
		if nLeft < dt.MinSamplesLeaf || nRight < dt.MinSamplesLeaf {
			return
		}
		weighted := (float64(nLeft)*dt.calculateImpurity(leftCounts) +
			float64(nRight)*dt.calculateImpurity(rightCounts)) / float64(n)
		decrease := parentImpurity - weighted
		if best.feature < 0 || decrease > best.decrease {
			best = split{feature: feature, threshold: threshold, decrease: decrease}
		}
	}

	for i, s := range present {
		leftCounts[b.data.Y[s]]++
		rightCounts[b.data.Y[s]]--
		if i+1 < len(present) {
			v, next := col[s], col[present[i+1]]
			if v == next {
				continue
			}
			threshold := v + (next-v)/2
			// Guard against the midpoint rounding up to next.
			if threshold == next {
				threshold = v
			}
			consider(i+1, threshold)
		} else if len(present) < n {
			// Every present value left, every missing value right.
			consider(i+1, col[s])
		}
	}
	return best, best.feature >= 0
}

// normalizeFeatureImportances normalizes feature importance scores
func (dt *DecisionTreeClassifier) normalizeFeatureImportances() {
	sum := 0.0
	for _, imp := range dt.FeatureImportances {
		sum += imp
	}
	if sum > 0 {
		for i := range dt.FeatureImportances {
			dt.FeatureImportances[i] /= sum
		}
	}
}

// Apply returns the leaf reached by row.
func (dt *DecisionTreeClassifier) Apply(row []float64) *TreeNode {
	node := dt.Root
	for !node.IsLeaf {
		if GoesLeft(row[node.Feature], node.Threshold) {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// Predict makes predictions for input data
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "Predict")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.Predict", dt.NFeatures, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		predictions.Set(i, 0, float64(dt.Classes[dt.Apply(row).PredictClass]))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", dt.NFeatures, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, dt.NClasses, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		dt.AddProba(probas.RawRowView(i), row)
	}
	return probas, nil
}

// AddProba adds the class distribution of the leaf reached by row to dst.
func (dt *DecisionTreeClassifier) AddProba(dst, row []float64) {
	leaf := dt.Apply(row)
	if leaf.NSamples == 0 {
		return
	}
	for j, count := range leaf.ClassCounts {
		dst[j] += float64(count) / float64(leaf.NSamples)
	}
}

// Score returns the mean accuracy on the given test data
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return 0, errors.NewModelError("DecisionTreeClassifier.Score", "empty data", errors.ErrEmptyData)
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.Criterion,
		"max_depth":             dt.MaxDepth,
		"min_samples_split":     dt.MinSamplesSplit,
		"min_samples_leaf":      dt.MinSamplesLeaf,
		"max_features":          dt.MaxFeatures,
		"min_impurity_decrease": dt.MinImpurityDecrease,
		"random_state":          dt.RandomState,
	}
}

// SetParams sets the model hyperparameters
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			dt.Criterion, err = model.ParamString(value)
		case "max_depth":
			dt.MaxDepth, err = model.ParamInt(value)
		case "min_samples_split":
			dt.MinSamplesSplit, err = model.ParamInt(value)
		case "min_samples_leaf":
			dt.MinSamplesLeaf, err = model.ParamInt(value)
		case "max_features":
			dt.MaxFeatures, err = model.ParamString(value)
		case "min_impurity_decrease":
			dt.MinImpurityDecrease, err = model.ParamFloat(value)
		case "random_state":
			dt.RandomState, err = model.ParamInt64(value)
		default:
			return errors.NewValidationError(key, "unknown parameter for DecisionTreeClassifier", value)
		}
		if err != nil {
			return errors.NewValidationError(key, err.Error(), value)
		}
	}
	return nil
}

// CloneEstimator returns an unfitted tree with the same hyperparameters.
func (dt *DecisionTreeClassifier) CloneEstimator() interface{} {
	clone := NewDecisionTreeClassifier()
	_ = clone.SetParams(dt.GetParams())
	return clone
}

// GetClasses returns the class labels in probability column order.
func (dt *DecisionTreeClassifier) GetClasses() []int {
	return dt.Classes
}

// GetFeatureImportances returns feature importance scores
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	if dt.FeatureImportances == nil {
		return nil
	}
	importances := make([]float64, len(dt.FeatureImportances))
	copy(importances, dt.FeatureImportances)
	return importances
}

// GetDepth returns the depth of the tree
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.Root == nil {
		return 0
	}
	return maxDepth(dt.Root)
}

func maxDepth(node *TreeNode) int {
	if node.IsLeaf {
		return node.Depth
	}
	l, r := maxDepth(node.Left), maxDepth(node.Right)
	if l > r {
		return l
	}
	return r
}

// GetNLeaves returns the number of leaf nodes
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return countLeaves(dt.Root)
}

func countLeaves(node *TreeNode) int {
	if node == nil {
		return 0
	}
	if node.IsLeaf {
		return 1
	}
	return countLeaves(node.Left) + countLeaves(node.Right)
}
