package log

// Standard attribute keys. They use a dotted hierarchy ("model.name",
// "data.samples") so log lines can be filtered by prefix.

// Model and operation context.
const (
	// LoggerNameKey is set by GetLoggerWithName.
	LoggerNameKey = "logger"

	// ModelNameKey identifies the estimator type, e.g. "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed: fit, predict, transform, score.
	OperationKey = "ml.operation"

	// ComponentKey is the package performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: training, validation, testing, inference.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	ColumnKey   = "data.column"
	PathKey     = "data.path"
)

// Performance and evaluation.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	ScoreKey      = "metrics.score"
	FoldKey       = "cv.fold"
	CandidateKey  = "cv.candidate"
	IterationKey  = "training.iteration"
)

// Prediction context.
const (
	PredsKey      = "preds.count"
	LabelKey      = "preds.label"
	ConfidenceKey = "preds.confidence"
	CacheHitKey   = "preds.cache_hit"
)

// Error context.
const (
	ErrorCodeKey = "error.code"
	ErrorTypeKey = "error.type"
)

// Hyperparameters and configuration.
const (
	HyperParamsKey = "model.hyperparams"
	RandomSeedKey  = "config.random_seed"
)

// HTTP server context.
const (
	RequestIDKey = "http.request_id"
	MethodKey    = "http.method"
	RouteKey     = "http.route"
	StatusKey    = "http.status"
	ClientIPKey  = "http.client_ip"
)

// Standard values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorSchemaMismatch    = "SCHEMA_MISMATCH"
)
