package school

import "math"

// Letter grade thresholds (percentages)
const (
	gradeA = 90
	gradeB = 80
	gradeC = 70
	gradeD = 60

	bandGood = 80
	bandFair = 60
)

// Percentage returns score/maxScore as a rounded percentage; 0 if maxScore is not positive.
func Percentage(score, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(score / maxScore * 100))
}

// GradeLetter maps a percentage to a letter grade.
func GradeLetter(pct int) string {
	switch {
	case pct >= gradeA:
		return "A"
	case pct >= gradeB:
		return "B"
	case pct >= gradeC:
		return "C"
	case pct >= gradeD:
		return "D"
	default:
		return "F"
	}
}

// Band classifies a percentage (grade or attendance rate) as "good", "fair" or "poor".
func Band(pct int) string {
	switch {
	case pct >= bandGood:
		return "good"
	case pct >= bandFair:
		return "fair"
	default:
		return "poor"
	}
}

type AttendanceSummary struct {
	Total   int
	Present int
	Absent  int
	Late    int
	Excused int
	Rate    int // rounded percentage of days attended (present or late)
}

// Attended counts the days the student was in class, late or not.
func (s AttendanceSummary) Attended() int { return s.Present + s.Late }

// SummarizeAttendance counts records per status. An empty history has a 100% rate.
func SummarizeAttendance(records []AttendanceRecord) AttendanceSummary {
	var s AttendanceSummary
	for _, r := range records {
		s.Total++
		switch r.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		case StatusExcused:
			s.Excused++
		}
	}
	s.Rate = 100
	if s.Total > 0 {
		s.Rate = int(math.Round(float64(s.Attended()) / float64(s.Total) * 100))
	}
	return s
}

// FilterAttendance keeps the records of the given class; an empty classID keeps everything.
func FilterAttendance(records []AttendanceRecord, classID string) []AttendanceRecord {
	if classID == "" {
		return records
	}
	filtered := make([]AttendanceRecord, 0, len(records))
	for _, r := range records {
		if r.ClassKey() == classID {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

type SubjectAverage struct {
	SubjectID string
	Name      string
	Count     int
	Average   int
}

func (sa SubjectAverage) Grade() string { return GradeLetter(sa.Average) }

type MarksSummary struct {
	Count    int
	Average  int
	Subjects []SubjectAverage // in order of first appearance
}

func (ms MarksSummary) Grade() string { return GradeLetter(ms.Average) }

// AverageMarks returns the rounded mean percentage of marks; 0 if there are none.
func AverageMarks(marks []Mark) int {
	if len(marks) == 0 {
		return 0
	}
	var sum float64
	for _, m := range marks {
		if m.MaxScore > 0 {
			sum += m.Score / m.MaxScore * 100
		}
	}
	return int(math.Round(sum / float64(len(marks))))
}

// SummarizeMarks computes the overall and per-subject averages.
func SummarizeMarks(marks []Mark) MarksSummary {
	ms := MarksSummary{Count: len(marks), Average: AverageMarks(marks)}

	bySubject := make(map[string][]Mark)
	var order []string
	names := make(map[string]string)
	for _, m := range marks {
		key := m.SubjectKey()
		if _, ok := bySubject[key]; !ok {
			order = append(order, key)
			names[key] = m.SubjectLabel()
		}
		bySubject[key] = append(bySubject[key], m)
	}
	for _, key := range order {
		ms.Subjects = append(ms.Subjects, SubjectAverage{
			SubjectID: key,
			Name:      names[key],
			Count:     len(bySubject[key]),
			Average:   AverageMarks(bySubject[key]),
		})
	}
	return ms
}

// FilterMarks keeps the marks of the given subject; an empty subjectID keeps everything.
func FilterMarks(marks []Mark, subjectID string) []Mark {
	if subjectID == "" {
		return marks
	}
	filtered := make([]Mark, 0, len(marks))
	for _, m := range marks {
		if m.SubjectKey() == subjectID {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// RecentMarks returns the first n marks, as served (most recent first).
func RecentMarks(marks []Mark, n int) []Mark {
	if n < 0 {
		n = 0
	}
	if len(marks) <= n {
		return marks
	}
	return marks[:n]
}
