package explorer

import (
	"context"
	"time"

	"github.com/matzehuels/castgraph/pkg/layout"
	"github.com/matzehuels/castgraph/pkg/overlay"
	"github.com/matzehuels/castgraph/pkg/selection"
)

// Send queues an intent for [Session.Run]. It blocks only when the queue
// is full.
func (s *Session) Send(in Intent) {
	s.intents <- in
}

// Run is the session event loop. It applies intents in order, applies
// fetch results as they complete, steps the layout on a fixed interval and
// advances path particles on their own interval while a path is shown.
// Run returns when ctx is cancelled, after in-flight fetches finish.
func (s *Session) Run(ctx context.Context) error {
	layoutTicker := time.NewTicker(s.tick)
	defer layoutTicker.Stop()

	var particles *time.Ticker
	defer func() {
		if particles != nil {
			particles.Stop()
		}
		s.fetches.Wait()
	}()

	for {
		// A nil channel never fires, so the particle tick stops with the path.
		var particleC <-chan time.Time
		if particles != nil {
			particleC = particles.C
		}

		select {
		case <-ctx.Done():
			return nil
		case in := <-s.intents:
			s.handle(ctx, in)
		case apply := <-s.results:
			_ = s.locked(apply)
		case <-layoutTicker.C:
			s.stepLayout(ctx)
		case <-particleC:
			s.stepParticles()
		}

		switch active := s.PathActive(); {
		case active && particles == nil:
			particles = time.NewTicker(overlay.Interval)
		case !active && particles != nil:
			particles.Stop()
			particles = nil
		}
	}
}

// spawn runs fetch in a goroutine and hands its apply closure to the loop.
// Responses are applied in completion order.
func (s *Session) spawn(ctx context.Context, fetch func(context.Context) func() error) {
	s.fetches.Add(1)
	go func() {
		defer s.fetches.Done()
		apply := fetch(ctx)
		select {
		case s.results <- apply:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) handle(ctx context.Context, in Intent) {
	switch in := in.(type) {
	case Expand:
		s.spawn(ctx, func(ctx context.Context) func() error { return s.fetchExpansion(ctx, in.ID) })
	case QueryPath:
		id, err := s.beginPath(in.Start, in.End)
		if err != nil {
			return
		}
		s.spawn(ctx, func(ctx context.Context) func() error { return s.fetchPath(ctx, id, in.Start, in.End) })
	case ClearPath:
		s.ClearPath()
	case ShowPathOnly:
		if err := s.ShowPathOnly(); err != nil {
			s.fail(OpPath, err)
		}
	case ShowAll:
		s.ShowAll()
	case Highlight:
		s.Highlight(in.Intent)
	case SetSizeMode:
		s.SetSizeMode(in.Mode)
	case SetForces:
		s.SetForces(in.Forces)
	case Recenter:
		s.Recenter(in.Center)
	case ResetView:
		_ = s.locked(func() error {
			s.highlight(selection.ResetIntent{})
			s.engine.Reheat(layout.AlphaRestart)
			return nil
		})
	case DragStart:
		_ = s.locked(func() error {
			if err := s.engine.DragStart(in.ID); err != nil {
				return err
			}
			s.dragging = in.ID
			return nil
		})
	case DragMove:
		_ = s.locked(func() error { return s.engine.DragMove(in.ID, in.To) })
	case DragEnd:
		_ = s.locked(func() error {
			s.dragging = ""
			return s.engine.DragEnd(in.ID)
		})
	default:
		s.logger.Warn("unhandled intent", "type", in)
	}
}

func (s *Session) stepLayout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine.Cooled() {
		return
	}
	if err := s.engine.Tick(ctx); err != nil {
		s.logger.Error("layout tick", "error", err)
		return
	}
	s.emit(Ticked{Cooled: s.engine.Cooled()})
}

func (s *Session) stepParticles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.Tick()
	s.emit(Ticked{Cooled: s.engine.Cooled()})
}
