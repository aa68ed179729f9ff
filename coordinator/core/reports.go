package core

import (
	"context"
	"math"
	"sort"
	"time"
)

// Daily overhead allowance (briefing, vehicle checks) subtracted from the
// shift length before a worker's output is scored.
const overheadMinutes = 20

// Fallback shift length used for multi-day targets, in minutes.
const standardShiftMinutes = 480

type interval struct {
	start time.Time
	end   time.Time
}

// clip restricts an interval to [lo, hi]. The second return value is
// false when nothing of the interval survives.
func clip(start, end, lo, hi time.Time) (interval, bool) {
	if start.Before(lo) {
		start = lo
	}
	if end.After(hi) {
		end = hi
	}
	if !start.Before(end) {
		return interval{}, false
	}
	return interval{start: start, end: end}, true
}

// mergeIntervals merges overlapping or touching intervals so time a
// worker spent inside two tasks at once is counted once.
func mergeIntervals(in []interval) []interval {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]interval, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start.Before(sorted[j].start) })

	merged := []interval{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !next.start.After(last.end) {
			if next.end.After(last.end) {
				last.end = next.end
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

func sumMinutes(in []interval) float64 {
	var total float64
	for _, iv := range in {
		total += iv.end.Sub(iv.start).Minutes()
	}
	return total
}

// shiftWindow resolves a worker's shift bounds on a calendar day.
func shiftWindow(date, workStart, workEnd string) (time.Time, time.Time, error) {
	if workStart == "" {
		workStart = DefaultWorkStart
	}
	if workEnd == "" {
		workEnd = DefaultWorkEnd
	}
	lo, err := time.ParseInLocation("2006-01-02 15:04", date+" "+workStart, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	hi, err := time.ParseInLocation("2006-01-02 15:04", date+" "+workEnd, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return lo, hi, nil
}

func shiftMinutes(workStart, workEnd string) int {
	lo, hi, err := shiftWindow("2000-01-01", workStart, workEnd)
	if err != nil {
		return standardShiftMinutes
	}
	return int(hi.Sub(lo).Minutes())
}

func efficiencyScore(netMinutes float64, targetMinutes int) int {
	if targetMinutes <= 0 {
		return 0
	}
	return int(math.Min(100, math.Round(netMinutes/float64(targetMinutes)*100)))
}

type TimelineEntry struct {
	Type    string    `json:"type"`
	Start   time.Time `json:"start,omitempty"`
	End     time.Time `json:"end,omitempty"`
	Date    string    `json:"date,omitempty"`
	Desc    string    `json:"desc,omitempty"`
	Minutes int       `json:"minutes"`
	Percent int       `json:"percent,omitempty"`
}

type ReportDetail struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Desc    string    `json:"desc"`
	Minutes int       `json:"minutes"`
	Type    string    `json:"type"`
}

type WorkerReport struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	TasksCount   int             `json:"tasksCount"`
	WorkMinutes  int             `json:"workTime"`
	DelayMinutes int             `json:"delayTime"`
	Efficiency   int             `json:"kpi"`
	SingleDay    bool            `json:"isSingleDay"`
	Timeline     []TimelineEntry `json:"timeline"`
	Details      []ReportDetail  `json:"details"`
	AvgTransport int             `json:"avgTransport"`
	AvgUnloading int             `json:"avgUnload"`
	AvgLoading   int             `json:"avgLoad"`
}

// Reports rebuilds per-worker labor statistics for the period purely from
// the event log and task timestamps; there are no running counters to
// drift out of sync.
func (s *Service) Reports(ctx context.Context, periodRaw string) ([]WorkerReport, error) {
	period, err := ParsePeriod(periodRaw, s.now())
	if err != nil {
		return nil, err
	}

	workers, err := s.store.ListWorkers(ctx, RoleDriver)
	if err != nil {
		return nil, err
	}

	out := make([]WorkerReport, 0, len(workers))
	for _, w := range workers {
		report, err := s.workerReport(ctx, w, period)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Efficiency > out[j].Efficiency })
	return out, nil
}

func (s *Service) workerReport(ctx context.Context, w Worker, period Period) (WorkerReport, error) {
	now := s.now()

	tasks, err := s.store.WorkerTasks(ctx, w.ID, period)
	if err != nil {
		return WorkerReport{}, err
	}
	delays, err := s.store.WorkerDelays(ctx, w.ID, period)
	if err != nil {
		return WorkerReport{}, err
	}

	report := WorkerReport{ID: w.ID, Name: w.Name, TasksCount: len(tasks), SingleDay: period.SingleDay}
	var intervals []interval
	activeDays := make(map[string]struct{})

	for _, t := range tasks {
		if t.StartedAt == nil {
			continue
		}
		activeDays[t.ScheduledDate] = struct{}{}

		end := now
		if pe := s.personalEnd(ctx, t, w.ID); pe != nil {
			end = *pe
		} else if t.CompletedAt != nil {
			end = *t.CompletedAt
		} else if t.PausedAt != nil {
			end = *t.PausedAt
		}

		lo, hi, err := shiftWindow(t.ScheduledDate, w.WorkStart, w.WorkEnd)
		if err != nil {
			return WorkerReport{}, err
		}
		iv, ok := clip(*t.StartedAt, end, lo, hi)
		if !ok {
			continue
		}
		intervals = append(intervals, iv)

		minutes := int(math.Round(iv.end.Sub(iv.start).Minutes()))
		kind := "work"
		if t.Status == StatusInProgress {
			kind = "work-live"
		}
		report.Details = append(report.Details, ReportDetail{
			Start: iv.start, End: iv.end, Desc: t.Description, Minutes: minutes, Type: kind,
		})
		report.Timeline = appendTimeline(report.Timeline, period.SingleDay, t.ScheduledDate, kind, t.Description, iv, minutes)
	}

	var delayMinutes float64
	for _, d := range delays {
		day := d.CreatedAt.Format(dateLayout)
		lo, hi, err := shiftWindow(day, w.WorkStart, w.WorkEnd)
		if err != nil {
			return WorkerReport{}, err
		}
		iv, ok := clip(d.CreatedAt, d.CreatedAt.Add(time.Duration(d.DelayMinutes)*time.Minute), lo, hi)
		if !ok {
			continue
		}
		minutes := int(math.Round(iv.end.Sub(iv.start).Minutes()))
		delayMinutes += iv.end.Sub(iv.start).Minutes()
		label, ok := delayLabels[d.DelayReason]
		if !ok {
			label = d.DelayReason
		}
		report.Details = append(report.Details, ReportDetail{
			Start: iv.start, End: iv.end, Desc: "Przestój: " + label, Minutes: minutes, Type: "delay",
		})
		if period.SingleDay {
			report.Timeline = append(report.Timeline, TimelineEntry{
				Type: "delay", Start: iv.start, End: iv.end, Desc: label, Minutes: minutes,
			})
		}
	}

	workMinutes := sumMinutes(mergeIntervals(intervals))
	net := math.Max(0, workMinutes-delayMinutes)

	targetMinutes := 0
	if period.SingleDay {
		targetMinutes = shiftMinutes(w.WorkStart, w.WorkEnd) - overheadMinutes
	} else {
		targetMinutes = len(activeDays) * (standardShiftMinutes - overheadMinutes)
	}

	report.WorkMinutes = int(math.Round(net))
	report.DelayMinutes = int(math.Round(delayMinutes))
	report.Efficiency = efficiencyScore(net, targetMinutes)
	report.AvgTransport = averageSpan(tasks, TypeTransport)
	report.AvgUnloading = averageSpan(tasks, TypeUnloading)
	report.AvgLoading = averageSpan(tasks, TypeLoading)

	sort.Slice(report.Details, func(i, j int) bool { return report.Details[i].Start.Before(report.Details[j].Start) })
	return report, nil
}

// personalEnd returns the worker's own completion timestamp on a shared
// task, when they reported their part done before the task closed.
func (s *Service) personalEnd(ctx context.Context, t Task, workerID int64) *time.Time {
	parts, err := s.store.Participants(ctx, t.ID)
	if err != nil {
		return nil
	}
	for _, p := range parts {
		if p.UserID == workerID && p.State == ParticipantDonePart {
			return p.StateChangedAt
		}
	}
	return nil
}

func appendTimeline(timeline []TimelineEntry, singleDay bool, date, kind, desc string, iv interval, minutes int) []TimelineEntry {
	if singleDay {
		return append(timeline, TimelineEntry{
			Type: kind, Start: iv.start, End: iv.end, Desc: desc, Minutes: minutes,
		})
	}
	for i := range timeline {
		if timeline[i].Date == date {
			timeline[i].Minutes += minutes
			timeline[i].Percent = min(100, timeline[i].Minutes*100/standardShiftMinutes)
			return timeline
		}
	}
	return append(timeline, TimelineEntry{
		Type: "bar", Date: date, Minutes: minutes,
		Percent: min(100, minutes*100/standardShiftMinutes),
	})
}

// averageSpan is the mean raw start-to-complete span for completed tasks
// of a type, in whole minutes. Raw on purpose: it is operational insight,
// not payroll, so shift clipping does not apply.
func averageSpan(tasks []Task, tt TaskType) int {
	var sum time.Duration
	var count int
	for _, t := range tasks {
		if t.TaskType != tt || t.Status != StatusCompleted {
			continue
		}
		if t.StartedAt == nil || t.CompletedAt == nil || !t.CompletedAt.After(*t.StartedAt) {
			continue
		}
		sum += t.CompletedAt.Sub(*t.StartedAt)
		count++
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(sum.Minutes() / float64(count)))
}
