package pages

// Feature is a landing page highlight.
type Feature struct {
	Title string
	Body  string
}

// Landing is the render model of the home page.
type Landing struct {
	Headline    string
	Subheadline string
	Features    []Feature
	SignedIn    bool
	CTAHref     string
}

// LandingPage builds the home page. Signed-in visitors go straight to the app.
func LandingPage(signedIn bool) Landing {
	l := Landing{
		Headline:    "AI chart analysis in seconds",
		Subheadline: "Upload a chart or paste a TradingView or Binance link and get a clear market read.",
		Features: []Feature{
			{Title: "Upload or link", Body: "Drop a screenshot or paste a chart link and we capture it for you."},
			{Title: "Clear verdicts", Body: "Direction, confidence and a plain-language summary for every chart."},
			{Title: "Trade plans on Pro", Body: "Entry, stop loss and take profit tuned to your risk profile."},
		},
		SignedIn: signedIn,
		CTAHref:  "/app",
	}
	if !signedIn {
		l.CTAHref = "/app?auth=register"
	}
	return l
}
