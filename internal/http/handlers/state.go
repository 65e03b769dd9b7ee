package handlers

import (
	"github.com/rb-om1999/ensofinal/internal/authflow"
	"github.com/rb-om1999/ensofinal/internal/workflow"
)

type sessionState struct {
	SignedIn  bool   `json:"signed_in"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Plan      string `json:"plan"`
	Admin     bool   `json:"admin"`
	Credits   *int   `json:"credits_remaining,omitempty"`
	ProAccess bool   `json:"pro_access"`
}

type authState struct {
	Mode         authflow.Mode `json:"mode"`
	PendingEmail string        `json:"pending_email,omitempty"`
	Error        string        `json:"error,omitempty"`
	Notice       string        `json:"notice,omitempty"`
}

type workflowState struct {
	Mode       string                `json:"mode"`
	Phase      string                `json:"phase"`
	Busy       bool                  `json:"busy"`
	ChartURL   string                `json:"chart_url,omitempty"`
	Provider   string                `json:"provider,omitempty"`
	UploadName string                `json:"upload_name,omitempty"`
	UploadSize int                   `json:"upload_size,omitempty"`
	Fields     workflowFields        `json:"fields"`
	Preview    *workflow.PreviewView `json:"preview,omitempty"`
	Result     *workflow.Result      `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
	Notice     string                `json:"notice,omitempty"`
	Intent     string                `json:"intent,omitempty"`
}

type workflowFields struct {
	Symbol       string `json:"symbol"`
	Timeframe    string `json:"timeframe"`
	TradingStyle string `json:"trading_style,omitempty"`
	RiskProfile  string `json:"risk_profile,omitempty"`
	Balance      string `json:"balance,omitempty"`
}

type cockpitState struct {
	Session  sessionState  `json:"session"`
	Auth     authState     `json:"auth"`
	Workflow workflowState `json:"workflow"`
	Flash    string        `json:"flash,omitempty"`
}

// state is the JSON form of what the cockpit page renders. Reading it
// consumes the flash message like a page render does.
func (a *App) state(v *Visitor) cockpitState {
	st := v.Session.Snapshot()
	ss := sessionState{
		SignedIn:  st.Authenticated(),
		Plan:      st.PlanLabel(),
		Admin:     st.Admin,
		ProAccess: st.IsPro(),
	}
	if st.User != nil {
		ss.Email, ss.Name = st.User.Email, st.User.Name
	}
	if n, ok := st.Credits(); ok {
		ss.Credits = &n
	}

	av := v.Auth.View()
	wv := v.Workflow.View(st.IsPro())
	return cockpitState{
		Session: ss,
		Auth:    authState{Mode: av.Mode, PendingEmail: av.PendingEmail, Error: av.Error, Notice: av.Notice},
		Workflow: workflowState{
			Mode:       string(wv.Mode),
			Phase:      wv.Phase,
			Busy:       wv.Busy,
			ChartURL:   wv.ChartURL,
			Provider:   wv.Provider,
			UploadName: wv.UploadName,
			UploadSize: wv.UploadSize,
			Fields: workflowFields{
				Symbol:       wv.Fields.Symbol,
				Timeframe:    wv.Fields.Timeframe,
				TradingStyle: wv.Fields.TradingStyle,
				RiskProfile:  wv.Fields.RiskProfile,
				Balance:      wv.Fields.Balance,
			},
			Preview: wv.Preview,
			Result:  wv.Result,
			Error:   wv.Error,
			Notice:  wv.Notice,
			Intent:  wv.Intent.String(),
		},
		Flash: v.takeFlash(),
	}
}
