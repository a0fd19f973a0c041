package analysis

import (
	"context"
	"fmt"

	"github.com/DickyChant/topskim/internal/event"
	"github.com/DickyChant/topskim/internal/monitoring"
	"github.com/DickyChant/topskim/internal/output"
	"github.com/DickyChant/topskim/internal/selection"
)

// RecordSink receives the selected records. The record is only valid for
// the duration of the call.
type RecordSink interface {
	WriteRecord(ctx context.Context, r *output.Record) error
}

// MultiSink writes every record to each sink in order.
type MultiSink []RecordSink

// WriteRecord implements RecordSink.
func (m MultiSink) WriteRecord(ctx context.Context, r *output.Record) error {
	for _, s := range m {
		if err := s.WriteRecord(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarises a run.
type Stats struct {
	Read     int
	Selected int
	// Steps counts events by the step that stopped them; StepPassed counts
	// selected events.
	Steps map[selection.Step]int
}

// Run processes up to maxEvents events of src (all when maxEvents <= 0)
// and hands each selected record to sink, which may be nil. On
// cancellation it returns the stats so far with the context error.
func Run(ctx context.Context, src event.Source, p *Processor, sink RecordSink, maxEvents int) (Stats, error) {
	stats := Stats{Steps: make(map[selection.Step]int)}
	n := src.Len()
	if maxEvents > 0 && maxEvents < n {
		n = maxEvents
	}
	progress := monitoring.Progress(n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		progress(i)

		ev, err := src.Event(i)
		if err != nil {
			return stats, fmt.Errorf("read event %d: %w", i, err)
		}
		stats.Read++

		res := p.Process(ev)
		stats.Steps[res.Step]++
		if !res.Selected() {
			continue
		}
		stats.Selected++
		if sink == nil {
			continue
		}
		if err := sink.WriteRecord(ctx, res.Record); err != nil {
			return stats, fmt.Errorf("write event %d: %w", i, err)
		}
	}
	monitoring.Logf("analysis: %d events read, %d selected", stats.Read, stats.Selected)
	return stats, nil
}
