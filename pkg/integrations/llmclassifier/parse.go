package llmclassifier

import (
	"fmt"
	"strings"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/gosimple/slug"
)

const (
	classificationPrefix = "classification"
	explanationPrefix    = "explanation"
)

// ParseVerdict extracts the two-line answer. Labelled lines win; when the
// model omits the labels the first two non-empty lines are used.
func ParseVerdict(content string) (domain.Verdict, error) {
	var lines []string
	for _, ln := range strings.Split(content, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}

	if len(lines) < 2 {
		return domain.Verdict{}, fmt.Errorf("%w: unexpected output %q", domain.ErrNoClassification, content)
	}

	rawClass, rawExplanation := lines[0], lines[1]

	classIdx, explanationIdx := -1, -1
	for i, ln := range lines {
		label, _, ok := splitLabel(ln)
		if !ok {
			continue
		}

		switch label {
		case classificationPrefix:
			classIdx = i
		case explanationPrefix:
			explanationIdx = i
		}
	}

	// Models echo the example block sometimes; the answer is the last labelled line.
	if classIdx >= 0 {
		rawClass = lines[classIdx]
		switch {
		case explanationIdx > classIdx:
			rawExplanation = lines[explanationIdx]
		case classIdx+1 < len(lines):
			rawExplanation = lines[classIdx+1]
		default:
			rawExplanation = ""
		}
	}

	classification, err := domain.ParseClassification(slug.Make(valueOf(rawClass)))
	if err != nil {
		return domain.Verdict{}, err
	}

	return domain.Verdict{
		Classification: classification,
		Explanation:    valueOf(rawExplanation),
		Confidence:     1.0,
	}, nil
}

// splitLabel splits "Label: value" and reports the normalised label.
func splitLabel(line string) (label, value string, ok bool) {
	before, after, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}

	return slug.Make(before), strings.TrimSpace(after), true
}

func valueOf(line string) string {
	if _, value, ok := splitLabel(line); ok {
		return strings.Trim(value, "* ")
	}

	return strings.Trim(line, "* ")
}
