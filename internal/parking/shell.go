package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const entryTimeLayout = "2006-01-02 15:04:05"

// QueueSource resolves the queue a front end operates on and replaces it
// on create. *QueueHolder implements it.
type QueueSource interface {
	Queue() (*InstrumentedParkingQueue, bool)
	Install(ctx context.Context, capacity int) error
}

// Shell is a line-oriented front end over the queue held by a QueueSource.
// Every command looks the queue up again, so a queue installed elsewhere is
// picked up immediately.
type Shell struct {
	queues    QueueSource
	scanner   *bufio.Scanner
	out       io.Writer
	telemetry *TelemetryProvider
}

// NewShell reads commands from in and writes replies to out.
func NewShell(in io.Reader, out io.Writer, telemetry *TelemetryProvider, queues QueueSource) *Shell {
	return &Shell{
		queues:    queues,
		scanner:   bufio.NewScanner(in),
		out:       out,
		telemetry: telemetry,
	}
}

func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil && s.scanner.Scan() {
		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" {
			break
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	span := trace.SpanFromContext(ctx)

	parts := strings.Fields(input)
	command := parts[0]
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "create":
		s.handleCreate(ctx, parts)
	case "park":
		s.handlePark(ctx, parts)
	case "exit":
		s.handleExit(ctx, parts)
	case "search":
		s.handleSearch(ctx, parts)
	case "remove":
		s.handleRemove(ctx, parts)
	case "resize":
		s.handleResize(ctx, parts)
	case "clear":
		s.handleClear(ctx, parts)
	case "status":
		s.handleStatus(ctx, parts)
	case "stats":
		s.handleStats(ctx, parts)
	case "help":
		s.printf("Commands: create <capacity>, park <car_id>, exit, search <car_id>, remove <car_id>, resize <capacity>, clear, status, stats, quit\n")
	default:
		span.AddEvent("unknown_command")
		s.printf("Unknown command: %s\n", command)
	}
}

func (s *Shell) handleCreate(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 2, "create <capacity>") {
		return
	}

	capacity, ok := s.parseCapacity(ctx, parts[1])
	if !ok {
		return
	}

	if err := s.queues.Install(ctx, capacity); err != nil {
		s.fail(ctx, err)
		return
	}

	s.printf("Created a parking queue with %d slots\n", capacity)
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 2, "park <car_id>") {
		return
	}
	queue, ok := s.ready(ctx)
	if !ok {
		return
	}

	view, err := queue.Park(ctx, parts[1])
	if err != nil {
		s.fail(ctx, err)
		return
	}

	s.printf("Car %s parked in slot %d at %s (ticket %s)\n",
		view.Car.ID, view.Index, view.Car.EntryTime.Format(entryTimeLayout), view.Car.Ticket)
}

func (s *Shell) handleExit(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 1, "exit") {
		return
	}
	queue, ok := s.ready(ctx)
	if !ok {
		return
	}

	dep, err := queue.Exit(ctx)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	s.printf("Car %s exited from slot %d. Duration: %s\n", dep.Car.ID, dep.Slot, FormatDuration(dep.Duration))
}

func (s *Shell) handleSearch(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 2, "search <car_id>") {
		return
	}
	queue, ok := s.ready(ctx)
	if !ok {
		return
	}

	view, ok := queue.Search(ctx, parts[1])
	if !ok {
		s.printf("Car %s not found\n", parts[1])
		return
	}

	s.printf("Slot %d: car %s | entered %s | duration %s\n",
		view.Index, view.Car.ID, view.Car.EntryTime.Format(entryTimeLayout),
		FormatDuration(view.Car.Duration(queue.Now())))
}

func (s *Shell) handleRemove(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 2, "remove <car_id>") {
		return
	}
	queue, ok := s.ready(ctx)
	if !ok {
		return
	}

	dep, err := queue.Remove(ctx, parts[1])
	if err != nil {
		s.fail(ctx, err)
		return
	}

	s.printf("Car %s removed from slot %d. Duration: %s\n", dep.Car.ID, dep.Slot, FormatDuration(dep.Duration))
}

func (s *Shell) handleResize(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 2, "resize <capacity>") {
		return
	}
	queue, ok := s.ready(ctx)
	if !ok {
		return
	}

	capacity, ok := s.parseCapacity(ctx, parts[1])
	if !ok {
		return
	}

	evicted, err := queue.Resize(ctx, capacity)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	for _, dep := range evicted {
		s.printf("Car %s evicted from slot %d. Duration: %s\n", dep.Car.ID, dep.Slot, FormatDuration(dep.Duration))
	}
	s.printf("Resized parking queue to %d slots\n", capacity)
}

func (s *Shell) handleClear(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 1, "clear") {
		return
	}
	queue, ok := s.ready(ctx)
	if !ok {
		return
	}

	cleared := queue.Clear(ctx)
	s.printf("Cleared %d cars\n", cleared)
}

func (s *Shell) handleStatus(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 1, "status") {
		return
	}
	queue, ok := s.ready(ctx)
	if !ok {
		return
	}

	slots, stats := queue.Snapshot(ctx)
	if stats.Occupied == 0 {
		s.printf("Parking queue is empty\n")
		return
	}

	now := queue.Now()
	s.printf("Slot\tCar\tEntered\t\t\tDuration\n")
	for _, slot := range slots {
		if !slot.IsOccupied() {
			s.printf("%d\t-\n", slot.Index)
			continue
		}

		marker := ""
		switch {
		case slot.IsFront && slot.IsRear:
			marker = " (front, rear)"
		case slot.IsFront:
			marker = " (front)"
		case slot.IsRear:
			marker = " (rear)"
		}
		s.printf("%d\t%s\t%s\t%s%s\n", slot.Index, slot.Car.ID,
			slot.Car.EntryTime.Format(entryTimeLayout), FormatDuration(slot.Car.Duration(now)), marker)
	}
}

func (s *Shell) handleStats(ctx context.Context, parts []string) {
	if !s.arity(ctx, parts, 1, "stats") {
		return
	}
	queue, ok := s.ready(ctx)
	if !ok {
		return
	}

	_, stats := queue.Snapshot(ctx)
	s.printf("Occupancy: %d / %d | Front: %s | Rear: %s | Free slots: %d\n",
		stats.Occupied, stats.Capacity, cursor(stats.Front), cursor(stats.Rear), stats.Free)
}

func (s *Shell) ready(ctx context.Context) (*InstrumentedParkingQueue, bool) {
	queue, ok := s.queues.Queue()
	if !ok {
		trace.SpanFromContext(ctx).AddEvent("parking_queue_not_created")
		s.printf("Parking queue not created\n")
	}
	return queue, ok
}

func (s *Shell) arity(ctx context.Context, parts []string, n int, usage string) bool {
	if len(parts) != n {
		trace.SpanFromContext(ctx).AddEvent("invalid_arguments")
		s.printf("Usage: %s\n", usage)
		return false
	}
	return true
}

func (s *Shell) parseCapacity(ctx context.Context, raw string) (int, bool) {
	capacity, err := strconv.Atoi(raw)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(fmt.Errorf("invalid capacity: %s", raw))
		s.printf("Invalid capacity\n")
		return 0, false
	}
	return capacity, true
}

func (s *Shell) fail(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).AddEvent("command_failed",
		trace.WithAttributes(attribute.String("error_kind", ErrorKind(err))))

	switch {
	case errors.Is(err, ErrCapacityExceeded):
		s.printf("Sorry, parking queue is full. Resize or exit a car.\n")
	case errors.Is(err, ErrDuplicateID):
		s.printf("Error: %s\n", err)
	case errors.Is(err, ErrEmptyQueue):
		s.printf("Parking queue is empty\n")
	case errors.Is(err, ErrNotFound):
		s.printf("Error: %s\n", err)
	case errors.Is(err, ErrInvalidCapacity):
		s.printf("Invalid capacity\n")
	default:
		s.printf("Error: %s\n", err)
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func cursor(idx int) string {
	if idx < 0 {
		return "-"
	}
	return strconv.Itoa(idx)
}

// FormatDuration renders a stay as whole minutes and seconds, e.g. "3m 7s".
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
