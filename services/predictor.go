package services

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"hpi-forecast/models"
	"hpi-forecast/utils"
)

var (
	ErrNotTrained     = errors.New("predictor: model has not been trained")
	ErrEmptyInput     = errors.New("predictor: empty input")
	ErrLengthMismatch = errors.New("predictor: feature and target lengths differ")
)

// Predictor fits price = Intercept + Slope*t by ordinary least squares.
type Predictor struct {
	logger *utils.Logger

	trained   bool
	Intercept float64
	Slope     float64
}

// NewPredictor creates an untrained Predictor.
func NewPredictor(logger *utils.Logger) *Predictor {
	return &Predictor{logger: logger}
}

// Train fits the line to x (time index) and y (price). A single point or a
// constant x yields a flat line through the mean price.
func (p *Predictor) Train(x, y []float64) error {
	if len(x) == 0 {
		return ErrEmptyInput
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}

	if len(x) == 1 || stat.Variance(x, nil) == 0 {
		p.Intercept, p.Slope = stat.Mean(y, nil), 0
	} else {
		p.Intercept, p.Slope = stat.LinearRegression(x, y, nil, false)
	}
	p.trained = true

	p.logger.Debug("[predictor] Trained on %d points: price = %.4f + %.4f*t", len(x), p.Intercept, p.Slope)
	return nil
}

// Validate returns MAE and RMSE of the fitted line against the actuals.
func (p *Predictor) Validate(x, y []float64) (models.Metrics, error) {
	if len(x) != len(y) {
		return models.Metrics{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	preds, err := p.Forecast(x)
	if err != nil {
		return models.Metrics{}, err
	}

	absErr := make([]float64, len(y))
	sqErr := make([]float64, len(y))
	for i := range y {
		d := preds[i] - y[i]
		absErr[i] = math.Abs(d)
		sqErr[i] = d * d
	}

	mae := stat.Mean(absErr, nil)
	rmse := math.Sqrt(stat.Mean(sqErr, nil))
	return models.Metrics{MAE: &mae, RMSE: &rmse}, nil
}

// Forecast returns one predicted price per time index, in input order.
func (p *Predictor) Forecast(x []float64) ([]float64, error) {
	if !p.trained {
		return nil, ErrNotTrained
	}
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([]float64, len(x))
	for i, t := range x {
		out[i] = p.Intercept + p.Slope*t
	}
	return out, nil
}
