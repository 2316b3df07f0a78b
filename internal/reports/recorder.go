package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/user/eoc-response-sim/internal/interfaces"
	"github.com/user/eoc-response-sim/internal/types"
	"go.uber.org/zap"
)

// Writer persists reports
type Writer interface {
	Save(ctx context.Context, report Report) error
}

// Recorder writes a report every time a session ends
type Recorder struct {
	writer  Writer
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRecorder creates a recorder backed by writer
func NewRecorder(writer Writer, logger *zap.Logger) *Recorder {
	return &Recorder{
		writer:  writer,
		logger:  logger,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Attach subscribes the recorder to a session and returns the unsubscribe function
func (r *Recorder) Attach(store interfaces.SessionStore) func() {
	return store.Subscribe(r.handle)
}

func (r *Recorder) handle(current, previous types.GameState) {
	if current.Phase != types.PhaseEnded || previous.Phase == types.PhaseEnded || current.Scenario == nil {
		return
	}

	report := FromSnapshot(current, uuid.New().String(), r.now())
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.writer.Save(ctx, report); err != nil {
		r.logger.Error("Failed to save after-action report",
			zap.String("report_id", report.ID),
			zap.Error(err))
		return
	}
	r.logger.Info("After-action report saved",
		zap.String("report_id", report.ID),
		zap.String("scenario", report.ScenarioName),
		zap.Int("score", report.Score),
		zap.Int("completed_decisions", report.CompletedDecisions))
}

// FromSnapshot summarizes an ended session
func FromSnapshot(st types.GameState, id string, endedAt time.Time) Report {
	report := Report{
		ID:                 id,
		EndedAt:            endedAt,
		Score:              st.Score,
		CompletedDecisions: len(st.CompletedDecisions),
		PendingDecisions:   len(st.DecisionsWaiting),
		TimeRemaining:      st.TimeRemaining,
		Tutorial:           st.Tutorial,
		Resources:          st.Resources,
	}
	if st.Scenario != nil {
		report.Disaster = st.Scenario.Type
		report.ScenarioName = st.Scenario.Name
	}
	return report
}
