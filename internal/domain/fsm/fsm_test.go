package fsm_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/datemaker/internal/domain/fsm"
	"github.com/okian/datemaker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *trace) action(name string) fsm.Action[int] {
	return func(_ context.Context, turn int) error {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.steps = append(t.steps, name)
		return nil
	}
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

func datingGraph(t *trace) (*fsm.Definition[int], error) {
	return fsm.NewBuilder[int]().
		State("initial", t.action("initial")).
		State("round", t.action("round")).
		State("break", t.action("break")).
		State("final", t.action("final")).
		Transition("initial", "start", "round").
		Transition("round", "break", "break").
		Transition("round", "finish", "final").
		Transition("break", "next", "round").
		Transition("break", "finish", "final").
		Build("initial", fsm.WithLogger(logger.Nop()))
}

func TestMachine(t *testing.T) {
	Convey("Given the dating state graph", t, func() {
		ctx := context.Background()
		tr := &trace{}
		def, err := datingGraph(tr)
		So(err, ShouldBeNil)

		m := def.Start(ctx, 0)

		Convey("The initial action runs on start", func() {
			So(m.WaitInitial(ctx), ShouldBeNil)
			So(m.Current(), ShouldEqual, "initial")
			So(tr.list(), ShouldResemble, []string{"initial"})
		})

		Convey("A defined input moves the machine and runs the target action", func() {
			So(m.WaitInitial(ctx), ShouldBeNil)
			moved, err := m.Transition(ctx, "start", 0)
			So(err, ShouldBeNil)
			So(moved, ShouldBeTrue)
			So(m.Current(), ShouldEqual, "round")

			moved, _ = m.Transition(ctx, "break", 0)
			So(moved, ShouldBeTrue)
			moved, _ = m.Transition(ctx, "finish", 0)
			So(moved, ShouldBeTrue)
			So(m.Current(), ShouldEqual, "final")
			So(tr.list(), ShouldResemble, []string{"initial", "round", "break", "final"})
		})

		Convey("An undefined input leaves the state and runs nothing", func() {
			So(m.WaitInitial(ctx), ShouldBeNil)
			moved, err := m.Transition(ctx, "break", 0)
			So(err, ShouldBeNil)
			So(moved, ShouldBeFalse)
			So(m.Current(), ShouldEqual, "initial")
			So(tr.list(), ShouldResemble, []string{"initial"})
		})

		Convey("Machines from one definition are independent", func() {
			other := def.Start(ctx, 1)
			So(m.WaitInitial(ctx), ShouldBeNil)
			So(other.WaitInitial(ctx), ShouldBeNil)
			_, _ = m.Transition(ctx, "start", 0)
			So(m.Current(), ShouldEqual, "round")
			So(other.Current(), ShouldEqual, "initial")
		})

		Convey("Inputs are listed per state", func() {
			So(def.Inputs("break"), ShouldResemble, []string{"finish", "next"})
			So(def.Inputs("nope"), ShouldBeNil)
			So(def.Initial(), ShouldEqual, "initial")
		})
	})
}

func TestActionErrors(t *testing.T) {
	Convey("Given states whose actions fail", t, func() {
		ctx := context.Background()
		boom := errors.New("boom")
		def, err := fsm.NewBuilder[string]().
			State("a", func(context.Context, string) error { return boom }).
			State("b", func(_ context.Context, p string) error { return errors.New(p) }).
			Transition("a", "go", "b").
			Build("a", fsm.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		m := def.Start(ctx, "")
		So(m.WaitInitial(ctx), ShouldEqual, boom)

		moved, err := m.Transition(ctx, "go", "payload failed")
		So(moved, ShouldBeTrue)
		So(err.Error(), ShouldEqual, "payload failed")
		So(m.Current(), ShouldEqual, "b")
	})
}

func TestBuilderValidation(t *testing.T) {
	Convey("Given malformed graphs", t, func() {
		Convey("Duplicate states are rejected", func() {
			_, err := fsm.NewBuilder[int]().State("a", nil).State("a", nil).Build("a")
			So(errors.Is(err, fsm.ErrDuplicateState), ShouldBeTrue)
		})

		Convey("Transitions to unknown states are rejected", func() {
			_, err := fsm.NewBuilder[int]().State("a", nil).Transition("a", "x", "b").Build("a")
			So(errors.Is(err, fsm.ErrUnknownState), ShouldBeTrue)
		})

		Convey("An unknown initial state is rejected", func() {
			_, err := fsm.NewBuilder[int]().State("a", nil).Build("z")
			So(errors.Is(err, fsm.ErrUnknownState), ShouldBeTrue)
		})

		Convey("Duplicate inputs are rejected", func() {
			_, err := fsm.NewBuilder[int]().State("a", nil).State("b", nil).
				Transition("a", "x", "b").Transition("a", "x", "a").Build("a")
			So(errors.Is(err, fsm.ErrDuplicateInput), ShouldBeTrue)
		})

		Convey("Empty names are rejected", func() {
			_, err := fsm.NewBuilder[int]().State("", nil).Build("")
			So(errors.Is(err, fsm.ErrEmptyName), ShouldBeTrue)
		})
	})
}

func TestWaitInitialCancelled(t *testing.T) {
	Convey("WaitInitial returns when the caller gives up", t, func() {
		release := make(chan struct{})
		def, _ := fsm.NewBuilder[int]().
			State("slow", func(context.Context, int) error { <-release; return nil }).
			Build("slow", fsm.WithLogger(logger.Nop()))

		m := def.Start(context.Background(), 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		So(m.WaitInitial(ctx), ShouldEqual, context.Canceled)
		close(release)
		So(m.WaitInitial(context.Background()), ShouldBeNil)
	})
}
