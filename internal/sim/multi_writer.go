package sim

import (
	"errors"

	"netattack-sim/internal/telemetry"
)

// MultiWriter fans out step, episode and snapshot updates to several writers.
// Optional capabilities are forwarded to the writers that implement them.
// Streaming writers get every step as it happens; batching writers behind a
// mixed MultiWriter get the steps buffered until Flush.
type MultiWriter struct {
	writers []StepWriter
	pending []telemetry.StepRow
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...StepWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Batched reports whether every writer batches. Only then does the runner
// hand over whole episodes through WriteSteps.
func (mw *MultiWriter) Batched() bool {
	for _, w := range mw.writers {
		if _, ok := batchWriter(w); !ok {
			return false
		}
	}
	return len(mw.writers) > 0
}

// WriteStep streams a step row to non-batching writers and buffers it for
// the batching ones.
func (mw *MultiWriter) WriteStep(row telemetry.StepRow) error {
	buffered := false
	for _, w := range mw.writers {
		if _, ok := batchWriter(w); ok {
			buffered = true
			continue
		}
		if err := w.WriteStep(row); err != nil {
			return err
		}
	}
	if buffered {
		mw.pending = append(mw.pending, row)
	}
	return nil
}

// Flush hands the buffered steps to the batching writers and flushes any
// writer that buffers on its own.
func (mw *MultiWriter) Flush() error {
	rows := mw.pending
	mw.pending = nil
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := batchWriter(w); ok && len(rows) > 0 {
			if err := bw.WriteSteps(rows); err != nil {
				errs = append(errs, err)
			}
		}
		if f, ok := w.(flusher); ok {
			if err := f.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteSteps sends a batch to all writers, using batch mode where supported.
func (mw *MultiWriter) WriteSteps(rows []telemetry.StepRow) error {
	for _, w := range mw.writers {
		if bw, ok := batchWriter(w); ok {
			if err := bw.WriteSteps(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteStep(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteEpisode sends an episode summary to every writer that accepts one.
func (mw *MultiWriter) WriteEpisode(row telemetry.EpisodeRow) error {
	var errs []error
	for _, w := range mw.writers {
		if ew, ok := w.(EpisodeWriter); ok {
			if err := ew.WriteEpisode(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteSnapshot forwards a live snapshot to renderers.
func (mw *MultiWriter) WriteSnapshot(s Snapshot) error {
	for _, w := range mw.writers {
		if sw, ok := w.(snapshotWriter); ok {
			if err := sw.WriteSnapshot(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetAdminStatus forwards the admin UI indicator to writers that show it.
func (mw *MultiWriter) SetAdminStatus(active bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(adminStatusWriter); ok {
			aw.SetAdminStatus(active)
		}
	}
}
