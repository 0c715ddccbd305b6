package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/delvitaw/obesity/obesity"
	"github.com/delvitaw/obesity/pkg/errors"
	"github.com/delvitaw/obesity/pkg/log"
)

// PredictResponse is the JSON body of a successful prediction.
type PredictResponse struct {
	obesity.Prediction
	Cached bool `json:"cached"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse describes the loaded model.
type HealthResponse struct {
	Status       string    `json:"status"`
	Classes      []string  `json:"classes"`
	CVScore      float64   `json:"cv_score"`
	TestAccuracy float64   `json:"test_accuracy"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", newPage(obesity.DefaultSample(), s.Predictor().Artifact()))
}

func (s *Server) predictForm(c *gin.Context) {
	var in obesity.Sample
	a := s.Predictor().Artifact()
	if err := c.ShouldBind(&in); err != nil {
		p := newPage(in, a)
		p.Error = "Invalid input: " + err.Error()
		c.HTML(http.StatusBadRequest, "index.html", p)
		return
	}

	pred, cached, err := s.Predict(in)
	p := newPage(in, a)
	if err != nil {
		status := statusOf(err)
		if status >= 500 {
			_ = c.Error(err)
			p.Error = "Prediction failed."
		} else {
			p.Error = err.Error()
		}
		c.HTML(status, "index.html", p)
		return
	}
	s.logPrediction(c, pred, cached)
	p.setResult(pred, cached)
	c.HTML(http.StatusOK, "index.html", p)
}

func (s *Server) predictJSON(c *gin.Context) {
	var in obesity.Sample
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Details: err.Error()})
		return
	}
	pred, cached, err := s.Predict(in)
	if err != nil {
		status := statusOf(err)
		if status >= 500 {
			_ = c.Error(err)
			c.JSON(status, ErrorResponse{Error: "prediction failed"})
			return
		}
		c.JSON(status, ErrorResponse{Error: "invalid sample", Details: err.Error()})
		return
	}
	s.logPrediction(c, pred, cached)
	c.JSON(http.StatusOK, PredictResponse{Prediction: pred, Cached: cached})
}

func (s *Server) healthz(c *gin.Context) {
	a := s.Predictor().Artifact()
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Classes:      a.Classes,
		CVScore:      a.CVScore,
		TestAccuracy: a.TestAccuracy,
		CreatedAt:    a.CreatedAt,
	})
}

func (s *Server) logPrediction(c *gin.Context, pred obesity.Prediction, cached bool) {
	s.logger.Debug("Prediction served",
		log.RequestIDKey, c.GetString(requestIDCtxKey),
		log.PhaseKey, log.PhaseInference,
		log.LabelKey, pred.Label,
		log.CacheHitKey, cached,
	)
}

// statusOf maps sample problems to 400 and everything else to 500.
func statusOf(err error) int {
	var verr *errors.ValidationError
	if errors.As(err, &verr) || errors.Is(err, errors.ErrUndefinedBMI) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
