package workflow

import "github.com/rb-om1999/ensofinal/internal/domain"

// Phase is the workflow position. Only the four types below implement it.
type Phase interface {
	Name() string
	isPhase()
}

// Input collects the chart and its fields.
type Input struct{}

// Preview holds a captured chart awaiting analysis (link mode only).
type Preview struct {
	Screenshot domain.ScreenshotPreview
}

// Analyzing waits for the backend verdict.
type Analyzing struct{}

// Results shows the returned analysis.
type Results struct {
	Analysis domain.Analysis
}

func (Input) Name() string     { return "input" }
func (Preview) Name() string   { return "preview" }
func (Analyzing) Name() string { return "analyzing" }
func (Results) Name() string   { return "results" }

func (Input) isPhase()     {}
func (Preview) isPhase()   {}
func (Analyzing) isPhase() {}
func (Results) isPhase()   {}

// Mode selects how the chart is supplied.
type Mode string

const (
	ModeUpload Mode = "upload"
	ModeLink   Mode = "link"
)

// ParseMode accepts "upload" or "link".
func ParseMode(v string) (Mode, bool) {
	switch Mode(v) {
	case ModeUpload, ModeLink:
		return Mode(v), true
	default:
		return "", false
	}
}

// Intent asks the surrounding UI to open another panel.
type Intent int

const (
	IntentNone Intent = iota
	IntentOpenAuth
	IntentOpenUpgrade
)

func (i Intent) String() string {
	switch i {
	case IntentOpenAuth:
		return "auth"
	case IntentOpenUpgrade:
		return "upgrade"
	default:
		return ""
	}
}
