package deviation

import "fmt"

// Severity is totally ordered: None < Info < Low < Medium < High.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeverityLow
	SeverityMedium
	SeverityHigh
)

var severityNames = map[Severity]string{
	SeverityNone:   "no-severity",
	SeverityInfo:   "info",
	SeverityLow:    "low",
	SeverityMedium: "medium",
	SeverityHigh:   "high",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}

	return fmt.Sprintf("severity(%d)", int(s))
}

func (s Severity) MarshalText() ([]byte, error) {
	name, ok := severityNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}

	return []byte(name), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	for sev, name := range severityNames {
		if name == string(text) {
			*s = sev
			return nil
		}
	}

	return fmt.Errorf("invalid severity %q", text)
}

// Max returns the highest severity, or SeverityNone for no input.
func Max(severities ...Severity) Severity {
	highest := SeverityNone

	for _, s := range severities {
		if s > highest {
			highest = s
		}
	}

	return highest
}

// Aggregate returns the highest severity among the deviations.
func Aggregate(devs []Deviation) Severity {
	highest := SeverityNone

	for _, d := range devs {
		if d.Severity > highest {
			highest = d.Severity
		}
	}

	return highest
}
