package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/utils"
)

// rawAnalysis accepts both single strings and lists for the text fields,
// as the model returns either
type rawAnalysis struct {
	Observation     textOrList `json:"observation"`
	Observations    textOrList `json:"observations"`
	Recommendation  textOrList `json:"recommendation"`
	Recommendations textOrList `json:"recommendations"`
	RiskLevel       string     `json:"riskLevel"`
	Confidence      float64    `json:"confidence"`
	References      []string   `json:"references"`
}

type textOrList []string

func (t *textOrList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			*t = textOrList{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

func (t textOrList) join() string {
	parts := make([]string, 0, len(t))
	for _, s := range t {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// riskAliases maps what the model tends to answer onto the stored levels
var riskAliases = map[string]models.RiskLevel{
	"faible":   models.RiskLevelLow,
	"low":      models.RiskLevelLow,
	"moyen":    models.RiskLevelMedium,
	"modere":   models.RiskLevelMedium,
	"modéré":   models.RiskLevelMedium,
	"medium":   models.RiskLevelMedium,
	"eleve":    models.RiskLevelHigh,
	"élevé":    models.RiskLevelHigh,
	"high":     models.RiskLevelHigh,
	"critique": models.RiskLevelCritical,
	"critical": models.RiskLevelCritical,
}

// ParseAnalysis decodes the model output into a PhotoAnalysis. Confidence
// given as a percentage is scaled to 0..1.
func ParseAnalysis(text string) (*models.PhotoAnalysis, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(utils.ExtractJSONObject(text)), &raw); err != nil {
		return nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}

	level, ok := riskAliases[strings.ToLower(strings.TrimSpace(raw.RiskLevel))]
	if !ok {
		return nil, fmt.Errorf("unknown risk level %q", raw.RiskLevel)
	}

	confidence := raw.Confidence
	if confidence > 1 && confidence <= 100 {
		confidence /= 100
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %v", raw.Confidence)
	}

	observation := raw.Observation.join()
	if observation == "" {
		observation = raw.Observations.join()
	}
	recommendation := raw.Recommendation.join()
	if recommendation == "" {
		recommendation = raw.Recommendations.join()
	}
	if observation == "" {
		return nil, fmt.Errorf("analysis has no observation")
	}

	return &models.PhotoAnalysis{
		Observation:    observation,
		Recommendation: recommendation,
		RiskLevel:      level,
		Confidence:     confidence,
		References:     raw.References,
	}, nil
}
