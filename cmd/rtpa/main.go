// Interactive assistant: trains the solver in the background while a
// live dashboard cycles through sampled spots and shows the learned
// recommendation for each, alongside training progress.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/MDS-AnGe/RTPA-Studio"
)

func main() {
	snapshot := flag.String("snapshot", "strategies.rtpa", "Strategy snapshot to resume from and save to on exit")
	poolSize := flag.Int("pool_size", 10000, "Number of synthetic states in the training pool")
	refresh := flag.Duration("refresh", 2*time.Second, "Dashboard refresh interval")
	flag.Parse()

	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("RTPA", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle(" Studio", pterm.FgDarkGray.ToStyle()),
	).Srender()
	if err == nil {
		pterm.Print(title)
	}

	cfg := rtpa.ConfigFromEnv()

	var store rtpa.StrategyStore = rtpa.NewTable()
	if _, err := os.Stat(*snapshot); err == nil {
		tbl, err := rtpa.LoadTableFile(*snapshot)
		if err != nil {
			pterm.Fatal.Println(err)
		}
		store = tbl
		pterm.Info.Printfln("Resumed %d strategies from %s", tbl.Len(), *snapshot)
	}

	pool := rtpa.NewGenerator().States(*poolSize)
	advisor, err := rtpa.NewAdvisor(cfg, store, pool, nil)
	if err != nil {
		pterm.Fatal.Println(err)
	}

	if err := advisor.Start(context.Background()); err != nil {
		pterm.Fatal.Println(err)
	}
	pterm.Info.Printfln("Training on %d synthetic states with %d workers (Ctrl+C to quit)",
		len(pool), cfg.NumWorkers)
	pterm.Println()

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)

	demoSpots := rtpa.NewGenerator().States(64)
	area, _ := pterm.DefaultArea.Start()
	ticker := time.NewTicker(*refresh)

loop:
	for tick := 0; ; tick++ {
		renderDashboard(area, advisor, demoSpots[tick%len(demoSpots)])
		select {
		case <-interrupted:
			break loop
		case <-ticker.C:
		}
	}
	ticker.Stop()
	area.Stop()

	spinner, _ := pterm.DefaultSpinner.Start("Stopping training ...")
	advisor.Stop()
	advisor.Wait()
	spinner.Success()

	if tbl, ok := advisor.Store().(*rtpa.Table); ok && *snapshot != "" {
		if err := tbl.SaveFile(*snapshot); err != nil {
			pterm.Fatal.Println(err)
		}
		pterm.Success.Printfln("Saved %d strategies to %s", tbl.Len(), *snapshot)
	}
}
