package readiness

import "time"

// Signal statuses
const (
	StatusMissing = "missing"
	StatusAtRisk  = "at_risk"
)

// Signal keys
const (
	SignalNoWill             = "no_will"
	SignalNoDeathCertificate = "no_death_certificate"
	SignalUnpaidRent         = "unpaid_rent"
	SignalOverdueTasks       = "overdue_tasks"
	SignalActiveUtilities    = "active_utilities"
)

// Signal is one detected gap or risk on an estate
type Signal struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Count  int    `json:"count,omitempty"`
	Detail string `json:"detail"`
}

// Step severities and kinds accepted from the provider
const (
	SeverityInfo     = "info"
	SeverityWarn     = "warn"
	SeverityCritical = "critical"
)

var validSeverities = map[string]bool{
	SeverityInfo:     true,
	SeverityWarn:     true,
	SeverityCritical: true,
}

var validKinds = map[string]bool{
	"document": true,
	"payment":  true,
	"task":     true,
	"utility":  true,
	"general":  true,
}

// Step is a single suggested action in the plan
type Step struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Href     string `json:"href"`
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
}

// Plan is the generated readiness plan for an estate
type Plan struct {
	EstateID    string    `json:"estateId"`
	Signals     []Signal  `json:"signals"`
	Steps       []Step    `json:"steps"`
	GeneratedAt time.Time `json:"generatedAt"`
}
