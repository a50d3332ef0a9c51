package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}
	namedLogger.Info(context.Background(), "test message")
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a json logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithFormat("json", &buf), ShouldBeNil)
		So(SetLevelString("info"), ShouldBeNil)
		ctx := context.Background()

		Convey("Fields, names and bound fields are rendered", func() {
			l := Named("scheduler").With(EventID(42))
			l.Info(ctx, "worker started", String("kind", "dating"), Error(errors.New("boom")))

			out := buf.String()
			So(out, ShouldContainSubstring, `"component":"scheduler"`)
			So(out, ShouldContainSubstring, `"event_id":42`)
			So(out, ShouldContainSubstring, `"kind":"dating"`)
			So(out, ShouldContainSubstring, `"error":"boom"`)
			So(out, ShouldContainSubstring, `"source":"logger_test.go`)
		})

		Convey("Debug lines are dropped at info level", func() {
			Get().Debug(ctx, "hidden")
			So(buf.String(), ShouldBeEmpty)

			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(ctx, "visible")
			So(buf.String(), ShouldContainSubstring, "visible")
			So(SetLevelString("info"), ShouldBeNil)
		})

		Reset(func() { _ = Init() })
	})

	Convey("Unknown formats and levels are rejected", t, func() {
		So(InitWithFormat("xml", nil), ShouldNotBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}
