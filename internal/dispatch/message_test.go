package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/tuntasinaja/notify/internal/clock"
)

func TestDeadlineMessageSingleItem(t *testing.T) {
	t.Parallel()
	items := []WorkItem{{ID: "i1", Title: "PR Bab 3"}}

	msg := DeadlineMessage(items, ThresholdOneDay)
	if msg.Title != "⏰ Deadline Tugas" {
		t.Fatalf("Title = %q", msg.Title)
	}
	if want := `Deadline tugas "PR Bab 3" tinggal 1 hari lagi!`; msg.Body != want {
		t.Fatalf("Body = %q, want %q", msg.Body, want)
	}
	if msg.Data["threshold"] != "1day" {
		t.Fatalf("threshold = %q", msg.Data["threshold"])
	}
	if msg.Data["deepLink"] != "/?thread=i1" {
		t.Fatalf("deepLink = %q", msg.Data["deepLink"])
	}
}

func TestDeadlineMessageSubTaskLinksParent(t *testing.T) {
	t.Parallel()
	items := []WorkItem{{ID: "s1", ParentID: "i1", Title: "Bagian A"}}

	msg := DeadlineMessage(items, ThresholdSixHour)
	if msg.Title != "⏰ Deadline Sub Tugas" {
		t.Fatalf("Title = %q", msg.Title)
	}
	if !strings.Contains(msg.Body, "sub tugas") {
		t.Fatalf("Body = %q, want sub tugas noun", msg.Body)
	}
	if msg.Data["deepLink"] != "/?thread=i1" {
		t.Fatalf("deepLink = %q, want parent thread", msg.Data["deepLink"])
	}
}

func TestDeadlineMessageOneHourUrgency(t *testing.T) {
	t.Parallel()
	items := []WorkItem{{ID: "i1", Title: "PR"}}
	msg := DeadlineMessage(items, ThresholdOneHour)
	if !strings.HasSuffix(msg.Body, "Segera selesaikan!") {
		t.Fatalf("Body = %q, want urgency suffix", msg.Body)
	}
}

func TestDeadlineMessageEnumerationOverflow(t *testing.T) {
	t.Parallel()
	items := []WorkItem{
		{ID: "i1", Title: "A"}, {ID: "i2", Title: "B"},
		{ID: "i3", Title: "C"}, {ID: "i4", Title: "D"}, {ID: "i5", Title: "E"},
	}

	msg := DeadlineMessage(items, ThresholdOneDay)
	if !strings.Contains(msg.Body, "5 tugas") {
		t.Fatalf("Body = %q, want item count", msg.Body)
	}
	if !strings.Contains(msg.Body, "A, B, C dan 2 lainnya") {
		t.Fatalf("Body = %q, want three titles plus overflow", msg.Body)
	}
	if msg.Data["itemIds"] != "i1,i2,i3,i4,i5" {
		t.Fatalf("itemIds = %q", msg.Data["itemIds"])
	}
	if msg.Data["deepLink"] != "/" {
		t.Fatalf("deepLink = %q, want root for multi-item", msg.Data["deepLink"])
	}
}

func TestScheduleMessageVariants(t *testing.T) {
	t.Parallel()
	subjects := []string{"Matematika", "Fisika"}
	tomorrow := time.Date(2025, 9, 1, 0, 0, 0, 0, clock.WIB)

	summary := ScheduleMessage(subjects, tomorrow, 0, LevelSummary)
	if !strings.Contains(summary.Body, "Senin, 1 September 2025") {
		t.Fatalf("Body = %q, want civil date", summary.Body)
	}
	if !strings.Contains(summary.Body, "Matematika, Fisika") {
		t.Fatalf("Body = %q, want subject list", summary.Body)
	}
	if !strings.Contains(summary.Body, "Jangan lupa persiapkan!") {
		t.Fatalf("Body = %q, want summary closer", summary.Body)
	}

	detailed := ScheduleMessage(subjects, tomorrow, 3, LevelDetailed)
	if !strings.Contains(detailed.Body, "Cek 3 PR yang belum selesai") {
		t.Fatalf("Body = %q, want pending count", detailed.Body)
	}

	// Detailed mode with nothing pending falls back to the summary text.
	fallback := ScheduleMessage(subjects, tomorrow, 0, LevelDetailed)
	if !strings.Contains(fallback.Body, "Jangan lupa persiapkan!") {
		t.Fatalf("Body = %q, want summary fallback", fallback.Body)
	}

	if summary.Data["deepLink"] != "/?filter=Matematika%2CFisika" {
		t.Fatalf("deepLink = %q", summary.Data["deepLink"])
	}
	if summary.Data["type"] != "schedule_reminder" {
		t.Fatalf("type = %q", summary.Data["type"])
	}
}

func TestPersonalMessage(t *testing.T) {
	t.Parallel()
	one := PersonalMessage([]WorkItem{{ID: "i1", Title: "PR Bab 3"}})
	if want := `Tugas "PR Bab 3" deadline besok!`; one.Body != want {
		t.Fatalf("Body = %q, want %q", one.Body, want)
	}
	if one.Title != "Pengingat Deadline" {
		t.Fatalf("Title = %q", one.Title)
	}

	many := PersonalMessage([]WorkItem{
		{ID: "i1", Title: "A"}, {ID: "i2", Title: "B"},
	})
	if !strings.HasPrefix(many.Body, "2 tugas deadline besok:") {
		t.Fatalf("Body = %q", many.Body)
	}
}

func TestRemainingPhrase(t *testing.T) {
	t.Parallel()
	pairs := map[Threshold]string{
		ThresholdOneDay:  "1 hari",
		ThresholdSixHour: "6 jam",
		ThresholdOneHour: "1 jam",
		ThresholdNone:    "",
	}
	for th, want := range pairs {
		if got := RemainingPhrase(th); got != want {
			t.Errorf("RemainingPhrase(%v) = %q, want %q", th, got, want)
		}
	}
}
