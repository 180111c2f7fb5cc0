package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"nexus-analytics/internal/errors"
	"nexus-analytics/internal/models"
)

// ModelArtifact is the persisted regression model: a weight per
// feature column plus an intercept. The file is owned by the external
// training pipeline; this service only reads it.
type ModelArtifact struct {
	Name         string    `json:"name"`
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
	TrainedAt    time.Time `json:"trained_at"`
}

// ScalerArtifact is the persisted standard scaler paired with the
// model: per-column mean and scale from the training run.
type ScalerArtifact struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform standardizes a feature vector column by column. A zero
// scale column passes through centered but unscaled rather than
// dividing by zero.
func (s *ScalerArtifact) Transform(vec []float64) ([]float64, error) {
	if len(vec) != len(s.Mean) {
		return nil, errors.FeatureMismatch(
			fmt.Sprintf("scaler fitted on %d columns, got %d", len(s.Mean), len(vec)))
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		if s.Scale[i] == 0 {
			out[i] = v - s.Mean[i]
			continue
		}
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// Predictor loads the persisted model/scaler pair once and serves
// single-record inference. The artifacts are immutable for the process
// lifetime; Load memoizes.
type Predictor struct {
	mu         sync.Mutex
	modelPath  string
	scalerPath string
	model      *ModelArtifact
	scaler     *ScalerArtifact
	logger     *slog.Logger
}

func NewPredictor(modelPath, scalerPath string, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{
		modelPath:  modelPath,
		scalerPath: scalerPath,
		logger:     logger,
	}
}

// Load resolves and decodes both artifacts. Subsequent calls reuse the
// loaded pair.
func (p *Predictor) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

func (p *Predictor) loadLocked() error {
	if p.model != nil && p.scaler != nil {
		return nil
	}

	model, err := loadModelArtifact(p.modelPath)
	if err != nil {
		return err
	}
	scaler, err := loadScalerArtifact(p.scalerPath)
	if err != nil {
		return err
	}

	if len(scaler.Mean) != len(scaler.Scale) {
		return errors.ArtifactCorrupt(
			fmt.Sprintf("scaler mean/scale lengths disagree: %d vs %d", len(scaler.Mean), len(scaler.Scale)))
	}
	if len(model.Weights) != len(scaler.Mean) {
		return errors.ArtifactCorrupt(
			fmt.Sprintf("model expects %d features but scaler was fitted on %d", len(model.Weights), len(scaler.Mean)))
	}

	p.model = model
	p.scaler = scaler
	p.logger.Info("model artifacts loaded",
		"model", model.Name,
		"features", len(model.Weights),
		"trained_at", model.TrainedAt,
	)
	return nil
}

func loadModelArtifact(path string) (*ModelArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ArtifactMissing("model artifact not found at " + path)
		}
		return nil, errors.ArtifactMissingWrap(err, "model artifact unreadable at "+path)
	}

	var model ModelArtifact
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, errors.ArtifactCorruptWrap(err, "model artifact failed to decode")
	}
	if len(model.Weights) == 0 {
		return nil, errors.ArtifactCorrupt("model artifact has no weights")
	}
	return &model, nil
}

func loadScalerArtifact(path string) (*ScalerArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ArtifactMissing("scaler artifact not found at " + path)
		}
		return nil, errors.ArtifactMissingWrap(err, "scaler artifact unreadable at "+path)
	}

	var scaler ScalerArtifact
	if err := json.Unmarshal(data, &scaler); err != nil {
		return nil, errors.ArtifactCorruptWrap(err, "scaler artifact failed to decode")
	}
	if len(scaler.Mean) == 0 {
		return nil, errors.ArtifactCorrupt("scaler artifact has no columns")
	}
	return &scaler, nil
}

// Predict builds a single-row feature vector for the scenario,
// standardizes it, and applies the loaded model. The diagnostic
// figures in the result come from plain arithmetic on the scenario
// inputs, independent of the model, so callers always have a
// ground-truth reference beside the estimate.
func (p *Predictor) Predict(scenario models.Scenario, enc *EncoderSet, now time.Time) (models.PredictionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return models.PredictionResult{}, err
	}

	vec, fallback, err := BuildScenarioVector(scenario, enc, now)
	if err != nil {
		return models.PredictionResult{}, err
	}

	scaled, err := p.scaler.Transform(vec)
	if err != nil {
		return models.PredictionResult{}, err
	}

	if len(scaled) != len(p.model.Weights) {
		return models.PredictionResult{}, errors.FeatureMismatch(
			fmt.Sprintf("model was fit on %d features, got %d", len(p.model.Weights), len(scaled)))
	}

	predicted := p.model.Intercept
	for i, w := range p.model.Weights {
		predicted += w * scaled[i]
	}

	revenue := scenario.Revenue()
	cost := scenario.TotalCost()
	profit := revenue - cost
	margin := 0.0
	if revenue != 0 {
		margin = profit / revenue * 100
	}

	return models.PredictionResult{
		PredictedSales:   predicted,
		ProjectedRevenue: revenue,
		ProjectedCost:    cost,
		ProjectedProfit:  profit,
		ProjectedMargin:  margin,
		FallbackFields:   fallback,
	}, nil
}
