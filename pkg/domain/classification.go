package domain

import (
	"fmt"
	"strings"
)

type Classification string

const (
	ClassificationBullish Classification = "bullish"
	ClassificationBearish Classification = "bearish"
	ClassificationNeutral Classification = "neutral"
)

func ParseClassification(s string) (Classification, error) {
	switch c := Classification(strings.ToLower(strings.TrimSpace(s))); c {
	case ClassificationBullish, ClassificationBearish, ClassificationNeutral:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrNoClassification, s)
	}
}

// Actionable reports whether a post with this classification should raise an alert.
func (c Classification) Actionable() bool {
	return c == ClassificationBullish || c == ClassificationBearish
}

func (c Classification) String() string {
	return string(c)
}

// Verdict is what a classifier decided about one post.
type Verdict struct {
	Classification Classification `json:"classification" bson:"classification"`
	Explanation    string         `json:"explanation" bson:"explanation"`
	Confidence     float64        `json:"confidence" bson:"confidence"`
	Model          string         `json:"model,omitempty" bson:"model,omitempty"`
}
