package providers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Prediction is one row of the model output file: an element id with the
// attributes the model trained on and its projected points for the
// upcoming gameweek.
type Prediction struct {
	ElementID       int     `json:"element_id"`
	Name            string  `json:"name"`
	ClubID          uint    `json:"club_id"`
	ElementType     int     `json:"element_type"`
	Cost            int     `json:"cost"`
	PredictedPoints float64 `json:"predicted_points"`
}

// PredictionsProvider reads projected points from the CSV the prediction
// model writes after each training run.
type PredictionsProvider struct {
	path   string
	logger *logrus.Entry
}

func NewPredictionsProvider(path string, logger *logrus.Logger) *PredictionsProvider {
	return &PredictionsProvider{
		path:   path,
		logger: logger.WithField("component", "predictions_provider"),
	}
}

var predictionColumns = []string{"player_id", "web_name", "team", "element_type", "now_cost", "predicted_pts"}

// Load parses the predictions file. Rows with a malformed id or points
// value are skipped with a warning rather than failing the whole load.
func (p *PredictionsProvider) Load() ([]Prediction, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open predictions file: %w", err)
	}
	defer file.Close()

	return p.parse(file)
}

func (p *PredictionsProvider) parse(r io.Reader) ([]Prediction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read predictions header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, col := range predictionColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("predictions file missing column %q", col)
		}
	}

	var predictions []Prediction
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read predictions row: %w", err)
		}
		line++

		pred, err := parsePredictionRow(record, index)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"line":  line,
				"error": err.Error(),
			}).Warn("Skipping malformed prediction row")
			continue
		}
		predictions = append(predictions, pred)
	}

	p.logger.WithFields(logrus.Fields{
		"path":  p.path,
		"count": len(predictions),
	}).Info("Loaded predictions file")

	return predictions, nil
}

func parsePredictionRow(record []string, index map[string]int) (Prediction, error) {
	field := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	elementID, err := strconv.Atoi(field("player_id"))
	if err != nil {
		return Prediction{}, fmt.Errorf("invalid player_id %q", field("player_id"))
	}
	clubID, err := strconv.ParseUint(field("team"), 10, 32)
	if err != nil {
		return Prediction{}, fmt.Errorf("invalid team %q", field("team"))
	}
	elementType, err := strconv.Atoi(field("element_type"))
	if err != nil {
		return Prediction{}, fmt.Errorf("invalid element_type %q", field("element_type"))
	}
	cost, err := strconv.Atoi(field("now_cost"))
	if err != nil {
		return Prediction{}, fmt.Errorf("invalid now_cost %q", field("now_cost"))
	}
	points, err := strconv.ParseFloat(field("predicted_pts"), 64)
	if err != nil {
		return Prediction{}, fmt.Errorf("invalid predicted_pts %q", field("predicted_pts"))
	}

	return Prediction{
		ElementID:       elementID,
		Name:            field("web_name"),
		ClubID:          uint(clubID),
		ElementType:     elementType,
		Cost:            cost,
		PredictedPoints: points,
	}, nil
}

// LoadMap returns predictions keyed by element id. Duplicate ids keep the
// last row, matching how the model overwrites re-runs.
func (p *PredictionsProvider) LoadMap() (map[int]Prediction, error) {
	predictions, err := p.Load()
	if err != nil {
		return nil, err
	}
	byID := make(map[int]Prediction, len(predictions))
	for _, pred := range predictions {
		byID[pred.ElementID] = pred
	}
	return byID, nil
}
