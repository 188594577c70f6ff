package dispatch

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tuntasinaja/notify/internal/clock"
	"github.com/tuntasinaja/notify/internal/push"
)

// RemainingPhrase is the fixed human phrase for a threshold, used in message
// bodies ("tinggal 1 hari lagi!").
func RemainingPhrase(t Threshold) string {
	switch t {
	case ThresholdOneDay:
		return "1 hari"
	case ThresholdSixHour:
		return "6 jam"
	case ThresholdOneHour:
		return "1 jam"
	default:
		return ""
	}
}

// itemNoun distinguishes top-level tasks from sub-tasks in message text.
func itemNoun(items []WorkItem) string {
	allSub := len(items) > 0
	for _, it := range items {
		if !it.IsSubTask() {
			allSub = false
			break
		}
	}
	if allSub {
		return "sub tugas"
	}
	return "tugas"
}

// enumerateTitles lists up to maxTitlesPerMessage item titles, summarizing
// the overflow as a count.
func enumerateTitles(items []WorkItem) string {
	titles := make([]string, 0, maxTitlesPerMessage)
	for i, it := range items {
		if i == maxTitlesPerMessage {
			break
		}
		titles = append(titles, it.Title)
	}
	s := strings.Join(titles, ", ")
	if extra := len(items) - maxTitlesPerMessage; extra > 0 {
		s += fmt.Sprintf(" dan %d lainnya", extra)
	}
	return s
}

func joinItemIDs(items []WorkItem) string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return strings.Join(ids, ",")
}

// DeadlineMessage builds the per-user notification for a deadline threshold
// crossing over the user's uncompleted items. Metadata carries the item IDs
// and a deep link so a tap routes straight to the relevant task.
func DeadlineMessage(items []WorkItem, threshold Threshold) push.Message {
	noun := itemNoun(items)
	phrase := RemainingPhrase(threshold)

	var body string
	if len(items) == 1 {
		body = fmt.Sprintf("Deadline %s %q tinggal %s lagi!", noun, items[0].Title, phrase)
	} else {
		body = fmt.Sprintf("Deadline %d %s tinggal %s lagi: %s",
			len(items), noun, phrase, enumerateTitles(items))
	}
	if threshold == ThresholdOneHour {
		body += " Segera selesaikan!"
	}

	deepLink := "/"
	if len(items) == 1 {
		target := items[0].ID
		if items[0].IsSubTask() {
			target = items[0].ParentID
		}
		deepLink = "/?thread=" + target
	}

	return push.Message{
		Title: "⏰ Deadline " + titleNoun(noun),
		Body:  body,
		Data: map[string]string{
			"type":      "deadline_reminder",
			"threshold": threshold.String(),
			"itemIds":   joinItemIDs(items),
			"deepLink":  deepLink,
		},
	}
}

func titleNoun(noun string) string {
	if noun == "sub tugas" {
		return "Sub Tugas"
	}
	return "Tugas"
}

// ScheduleMessage builds the evening reminder that tomorrow has lessons.
// In detailed mode the body calls out the user's unfinished work matching
// tomorrow's subjects; in summary mode everyone in the class gets the same
// text.
func ScheduleMessage(subjects []string, tomorrow time.Time, pendingCount int, detail DetailLevel) push.Message {
	subjectList := strings.Join(subjects, ", ")
	date := clock.FormatCivilDate(tomorrow)

	var title, body string
	if detail == LevelDetailed && pendingCount > 0 {
		title = "⏰ Reminder: Besok Ada Pelajaran!"
		body = fmt.Sprintf("Besok (%s) ada pelajaran: %s. Cek %d PR yang belum selesai dan segera selesaikan!",
			date, subjectList, pendingCount)
	} else {
		title = "📅 Reminder: Besok Ada Pelajaran"
		body = fmt.Sprintf("Besok (%s) ada pelajaran: %s. Jangan lupa persiapkan!",
			date, subjectList)
	}

	filter := strings.Join(subjects, ",")
	return push.Message{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":     "schedule_reminder",
			"filter":   filter,
			"deepLink": "/?filter=" + url.QueryEscape(filter),
			"tomorrow": date,
		},
	}
}

// PersonalMessage builds the reminder delivered at the user's own configured
// time of day, listing their uncompleted items due within the next day.
func PersonalMessage(items []WorkItem) push.Message {
	var body string
	if len(items) == 1 {
		body = fmt.Sprintf("Tugas %q deadline besok!", items[0].Title)
	} else {
		body = fmt.Sprintf("%d tugas deadline besok: %s", len(items), enumerateTitles(items))
	}

	return push.Message{
		Title: "Pengingat Deadline",
		Body:  body,
		Data: map[string]string{
			"type":     "deadline_reminder",
			"itemIds":  joinItemIDs(items),
			"deepLink": "/",
		},
	}
}
