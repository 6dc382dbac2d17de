package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultConfidenceThreshold = 0.80

// Monitor runs one pass over the watched account: fetch, classify every
// post newer than the checkpoint, alert on actionable ones.
type Monitor struct {
	source      domain.PostSource
	classifier  domain.Classifier
	notifier    domain.Notifier
	checkpoints domain.CheckpointStore
	postLog     domain.PostLog
	threshold   float64
	now         func() time.Time
}

type MonitorDependencies struct {
	Source      domain.PostSource
	Classifier  domain.Classifier
	Checkpoints domain.CheckpointStore

	// Notifier and PostLog are optional.
	Notifier domain.Notifier
	PostLog  domain.PostLog

	// ConfidenceThreshold defaults to DefaultConfidenceThreshold.
	ConfidenceThreshold float64
}

func NewMonitor(deps MonitorDependencies) *Monitor {
	m := &Monitor{
		source:      deps.Source,
		classifier:  deps.Classifier,
		notifier:    deps.Notifier,
		checkpoints: deps.Checkpoints,
		postLog:     deps.PostLog,
		threshold:   deps.ConfidenceThreshold,
		now:         time.Now,
	}

	// Zero means unset; config rejects an explicit zero threshold.
	if m.threshold <= 0 {
		m.threshold = DefaultConfidenceThreshold
	}

	return m
}

func (m *Monitor) Run(ctx context.Context, trigger domain.TriggerKind) (domain.RunResult, error) {
	return m.RunWithID(ctx, uuid.NewString(), trigger)
}

// RunWithID is Run with a caller-chosen run id, for callers that report
// the id before the run completes.
func (m *Monitor) RunWithID(ctx context.Context, runID string, trigger domain.TriggerKind) (domain.RunResult, error) {
	result := domain.RunResult{
		RunID:     runID,
		Trigger:   trigger,
		StartedAt: m.now().UTC(),
	}

	logger := log.With().Str("run_id", runID).Str("trigger", string(trigger)).Logger()
	logger.Info().Msg("Monitor run started")

	err := m.run(logger.WithContext(ctx), &result)

	result.FinishedAt = m.now().UTC()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.
		Str("checkpoint", result.Checkpoint).
		Int("fetched", result.Fetched).
		Int("skipped", result.Skipped).
		Int("classified", result.Classified).
		Int("alerted", result.Alerted).
		Int("low_confidence", result.LowConfidence).
		Int("deferred", result.Deferred).
		Dur("duration", result.Duration).
		Msg("Monitor run finished")

	return result, err
}

func (m *Monitor) run(ctx context.Context, result *domain.RunResult) error {
	logger := zerolog.Ctx(ctx)

	checkpoint, err := m.checkpoints.Get(ctx)
	if err != nil {
		// Treated as a fresh start so one bad read does not stall alerts.
		logger.Warn().Err(err).Msg("Failed to read checkpoint, processing all fetched posts")
		result.Errors = append(result.Errors, err.Error())
		checkpoint = ""
	}
	result.Checkpoint = checkpoint

	posts, err := m.source.FetchPosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch posts: %w", err)
	}
	result.Fetched = len(posts)

	if len(posts) == 0 {
		logger.Info().Msg("No posts returned")
		return nil
	}

	// The API lists newest first.
	for i := len(posts) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			result.Deferred += i + 1
			return err
		}

		post := posts[i]

		if post.ID == "" || domain.IsProcessed(post.ID, checkpoint) {
			result.Skipped++
			continue
		}

		postLogger := logger.With().Str("post_id", post.ID).Logger()

		if post.Text == "" {
			postLogger.Info().Msg("Post has no text, advancing checkpoint")
			result.Empty++
			checkpoint = m.advance(ctx, result, post.ID)
			continue
		}

		verdict, err := m.classifier.Classify(ctx, post.Text)
		if err != nil {
			postLogger.Warn().Err(err).Msg("Classification failed, stopping run at this post")
			result.Errors = append(result.Errors, fmt.Sprintf("classify %s: %v", post.ID, err))
			result.Deferred += i + 1
			return nil
		}

		result.Classified++

		// Below the threshold the post is recorded but never alerted on.
		lowConfidence := verdict.Confidence < m.threshold
		if lowConfidence {
			result.LowConfidence++
			postLogger.Warn().
				Str("classification", verdict.Classification.String()).
				Float64("confidence", verdict.Confidence).
				Float64("threshold", m.threshold).
				Msg("Classification below confidence threshold, not alerting")
		} else {
			postLogger.Info().
				Str("classification", verdict.Classification.String()).
				Float64("confidence", verdict.Confidence).
				Msg("Post classified")
		}

		alerted := false
		if !lowConfidence && verdict.Classification.Actionable() && m.notifier != nil {
			alert := domain.Alert{
				PostID:  post.ID,
				PostURL: post.URL,
				Text:    post.Text,
				Verdict: verdict,
			}

			if err := m.notifier.Notify(ctx, alert); err != nil {
				postLogger.Error().Err(err).Msg("Failed to send alert")
				result.Errors = append(result.Errors, fmt.Sprintf("notify %s: %v", post.ID, err))
			} else {
				alerted = true
				result.Alerted++
			}
		}

		if m.postLog != nil {
			err := m.postLog.Record(ctx, domain.ProcessedPost{
				PostID:         post.ID,
				Text:           post.Text,
				Classification: verdict.Classification,
				Explanation:    verdict.Explanation,
				Confidence:     verdict.Confidence,
				Alerted:        alerted,
				LowConfidence:  lowConfidence,
				RunID:          result.RunID,
				ProcessedAt:    m.now().UTC(),
			})
			if err != nil {
				postLogger.Warn().Err(err).Msg("Failed to record processed post")
			}
		}

		checkpoint = m.advance(ctx, result, post.ID)
	}

	return nil
}

// advance moves the checkpoint forward. A failed write is logged; the
// in-run checkpoint still moves so later posts in this batch compare
// against it.
func (m *Monitor) advance(ctx context.Context, result *domain.RunResult, postID string) string {
	if err := m.checkpoints.Set(ctx, postID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("post_id", postID).Msg("Failed to save checkpoint")
		result.Errors = append(result.Errors, fmt.Sprintf("checkpoint %s: %v", postID, err))
	}

	result.Checkpoint = postID

	return postID
}
