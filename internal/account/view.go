package account

import "github.com/rb-om1999/ensofinal/internal/domain"

// Option is one entry of a select control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// View is the render model of the profile page.
type View struct {
	Email        string
	Name         string
	PlanLabel    string
	Credits      int
	ShowCredits  bool
	SaveEnabled  bool
	Balance      string
	RiskOptions  []Option
	StyleOptions []Option
}

// View builds the profile page from the cached session state.
func (f *Flow) View() View {
	st := f.session.Snapshot()
	v := View{PlanLabel: st.PlanLabel(), SaveEnabled: st.IsPro()}
	if st.User != nil {
		v.Email, v.Name = st.User.Email, st.User.Name
	}
	var p domain.UserProfile
	if st.Profile != nil {
		p = *st.Profile
	}
	if v.Name == "" {
		v.Name = p.Name
	}
	v.Credits, v.ShowCredits = st.Credits()
	v.Balance = p.Balance.String()

	for _, rp := range domain.RiskProfiles() {
		v.RiskOptions = append(v.RiskOptions, Option{Value: string(rp), Label: rp.Label(), Selected: rp == p.RiskProfile})
	}
	for _, s := range domain.TradingStyles() {
		v.StyleOptions = append(v.StyleOptions, Option{Value: string(s), Label: s.Label(), Selected: s == p.TradingStyle})
	}
	return v
}
