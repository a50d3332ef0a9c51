package types_test

import (
	"encoding/json"
	"testing"
	"time"

	types "github.com/okian/datemaker/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWorkerInfoJSON(t *testing.T) {
	Convey("Given a live dating worker", t, func() {
		info := types.WorkerInfo{
			RunID:     "run-1",
			Kind:      types.KindDating,
			EventID:   12,
			StartedAt: time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC),
		}

		Convey("Then it renders with snake_case keys", func() {
			raw, err := json.Marshal(info)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"run_id":"run-1","kind":"dating","event_id":12,"started_at":"2026-05-01T19:00:00Z"}`)
		})
	})
}
