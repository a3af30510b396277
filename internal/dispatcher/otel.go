package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/skyduel/dogfight/internal/dispatcher"

// instruments are the control-command metrics, recorded on the global
// meter provider (a no-op until the OTel provider is installed).
type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	rejected  metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

func commandAttr(command string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", command))
}

// newInstruments builds the instrument set and registers the queue depth
// callback, which reads the dispatcher's buffers under its read lock.
func newInstruments(d *Dispatcher) (instruments, error) {
	m := otel.Meter(instrumentationName)
	var (
		ins instruments
		err error
	)

	if ins.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Control commands waiting in a buffered handler queue"),
	); err != nil {
		return ins, fmt.Errorf("creating queue size gauge: %w", err)
	}
	if _, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, buf := range d.buffers {
				o.ObserveInt64(ins.queueSize, int64(len(buf)), commandAttr(cmd))
			}
			return nil
		},
		ins.queueSize,
	); err != nil {
		return ins, fmt.Errorf("registering queue callback: %w", err)
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&ins.processed, "dispatcher.events.processed", "Buffered control commands handled"},
		{&ins.dropped, "dispatcher.events.dropped", "Control commands dropped on a full queue"},
		{&ins.rejected, "dispatcher.events.rejected", "Commands with no registered handler"},
		{&ins.failed, "dispatcher.events.failed", "Control commands whose handler returned an error"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return ins, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	if ins.duration, err = m.Float64Histogram(
		"dispatcher.event.duration",
		metric.WithDescription("Control command handler latency"),
		metric.WithUnit("ms"),
	); err != nil {
		return ins, fmt.Errorf("creating duration histogram: %w", err)
	}
	return ins, nil
}
