// Command analyze signs in and runs one chart analysis from the terminal,
// printing the result as shown to the account's plan.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/session"
	"github.com/rb-om1999/ensofinal/internal/storage"
	"github.com/rb-om1999/ensofinal/internal/workflow"
	"github.com/rb-om1999/ensofinal/pkg/zip"
)

func main() {
	var (
		emailFlag     string
		imageFlag     string
		linkFlag      string
		symbolFlag    string
		timeframeFlag string
		styleFlag     string
		riskFlag      string
		balanceFlag   string
		outFlag       string
		exportFlag    bool
		bundleFlag    bool
	)

	flag.StringVar(&emailFlag, "email", os.Getenv("COCKPIT_EMAIL"), "account email (or COCKPIT_EMAIL)")
	flag.StringVar(&imageFlag, "image", "", "chart image to upload")
	flag.StringVar(&linkFlag, "link", "", "TradingView or Binance chart link to capture")
	flag.StringVar(&symbolFlag, "symbol", "", "trading symbol, e.g. BTCUSDT (taken from the link when omitted)")
	flag.StringVar(&timeframeFlag, "timeframe", "1H", "chart timeframe")
	flag.StringVar(&styleFlag, "style", "", "trading style")
	flag.StringVar(&riskFlag, "risk", "", "risk profile (pro)")
	flag.StringVar(&balanceFlag, "balance", "", "account balance (pro)")
	flag.StringVar(&outFlag, "out", "", "export directory (default EXPORT_DIR)")
	flag.BoolVar(&exportFlag, "export", false, "write the result, and a captured screenshot, under the export directory")
	flag.BoolVar(&bundleFlag, "bundle", false, "with -export, write a single zip archive instead of separate files")
	flag.Parse()

	_ = godotenv.Load()

	if (imageFlag == "") == (linkFlag == "") {
		exitWithError(errors.New("exactly one of -image or -link must be provided"))
	}
	password := os.Getenv("COCKPIT_PASSWORD")
	if strings.TrimSpace(emailFlag) == "" || password == "" {
		exitWithError(errors.New("-email and COCKPIT_PASSWORD are required"))
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := api.NewClient(api.Options{BaseURL: cfg.BackendURL, Logger: &logger, RequestTimeout: cfg.APITimeout})
	if err != nil {
		exitWithError(err)
	}
	sess := session.NewManager("cli", session.Options{
		Backend: client,
		Admins:  session.AdminPolicy{Emails: cfg.AdminEmails},
		Logger:  &logger,
	})
	st, err := sess.Login(ctx, emailFlag, password)
	if err != nil {
		exitWithError(fmt.Errorf("sign in: %s", api.Message(err, "Authentication failed")))
	}
	pro := st.IsPro()
	logger.Info().Str("plan", st.PlanLabel()).Msg("signed in")

	wf := workflow.New(workflow.Options{
		Backend:   client,
		Session:   sess,
		Providers: cfg.Providers(),
		Logger:    &logger,
	})
	fields := workflow.Fields{
		Symbol:       symbolFlag,
		Timeframe:    timeframeFlag,
		TradingStyle: styleFlag,
		RiskProfile:  riskFlag,
		Balance:      balanceFlag,
	}

	var screenshot string
	if imageFlag != "" {
		data, err := os.ReadFile(imageFlag)
		if err != nil {
			exitWithError(err)
		}
		check(wf, wf.SetMode(workflow.ModeUpload))
		check(wf, wf.SetUpload(filepath.Base(imageFlag), data))
		check(wf, wf.SetFields(fields))
	} else {
		check(wf, wf.SetMode(workflow.ModeLink))
		check(wf, wf.SetChartURL(linkFlag))
		check(wf, wf.SetFields(fields))
		check(wf, wf.Capture(ctx))
		if p := wf.View(pro).Preview; p != nil {
			screenshot = p.ImageBase64
			logger.Info().Str("platform", p.Platform).Str("dimensions", p.Dimensions).Msg("chart captured")
		}
	}
	check(wf, wf.Analyze(ctx))

	view := wf.View(pro)
	out, err := wf.JSON(pro)
	if err != nil {
		exitWithError(err)
	}
	fmt.Println(string(out))
	if n, ok := sess.Snapshot().Credits(); ok {
		logger.Info().Int("credits_remaining", n).Msg("analysis complete")
	}

	if !exportFlag {
		return
	}
	dir := outFlag
	if dir == "" {
		dir = cfg.ExportDir
	}
	store, err := storage.NewFileStore(dir)
	if err != nil {
		exitWithError(err)
	}
	now := time.Now()
	symbol := view.Fields.Symbol
	if p := view.Preview; p != nil && symbol == "" {
		symbol = p.Symbol
	}
	jsonKey := storage.ExportKey(symbol, view.Fields.Timeframe, now, ".json")
	pngKey := storage.ExportKey(symbol, view.Fields.Timeframe, now, ".png")
	if bundleFlag {
		entries := []zip.Entry{{Name: filepath.Base(jsonKey), Data: append(out, '\n'), Modified: now}}
		if screenshot != "" {
			img, err := storage.DecodeScreenshot(screenshot)
			if err != nil {
				exitWithError(err)
			}
			entries = append(entries, zip.Entry{Name: filepath.Base(pngKey), Data: img, Modified: now})
		}
		archive, err := zip.Bundle(entries)
		if err != nil {
			exitWithError(err)
		}
		path, err := store.Write(ctx, storage.ExportKey(symbol, view.Fields.Timeframe, now, ".zip"), archive)
		if err != nil {
			exitWithError(err)
		}
		logger.Info().Str("path", path).Int("files", len(entries)).Msg("bundle exported")
		return
	}
	path, err := store.WriteJSON(ctx, jsonKey, view.Result)
	if err != nil {
		exitWithError(err)
	}
	logger.Info().Str("path", path).Msg("result exported")
	if screenshot != "" {
		path, err := store.WriteScreenshot(ctx, pngKey, screenshot)
		if err != nil {
			exitWithError(err)
		}
		logger.Info().Str("path", path).Msg("screenshot exported")
	}
}

// check exits with the workflow's display message when step failed.
func check(wf *workflow.Workflow, err error) {
	if err == nil {
		return
	}
	if msg := wf.View(false).Error; msg != "" {
		exitWithError(errors.New(msg))
	}
	exitWithError(err)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
