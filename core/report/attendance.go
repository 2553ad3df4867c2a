package report

// AttendanceSummary is a student's presence figures over a period window.
type AttendanceSummary struct {
	Sessions     int     `json:"sessions"`
	Absences     int     `json:"absences"`
	Lateness     int     `json:"lateness"`
	PresenceRate float64 `json:"presence_rate"` // percentage; 0 when no sessions
}

// SummarizeAttendance folds attendance records into counters and a presence
// rate. Lateness only counts sessions the student actually attended.
func SummarizeAttendance(records []AttendanceRecord) AttendanceSummary {
	var s AttendanceSummary
	s.Sessions = len(records)
	for _, rec := range records {
		if !rec.Present {
			s.Absences++
		} else if rec.Late {
			s.Lateness++
		}
	}
	if s.Sessions > 0 {
		s.PresenceRate = float64(s.Sessions-s.Absences) / float64(s.Sessions) * 100
	}
	return s
}
