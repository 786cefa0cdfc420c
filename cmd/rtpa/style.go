package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/MDS-AnGe/RTPA-Studio"
	"github.com/MDS-AnGe/RTPA-Studio/poker"
)

// renderDashboard draws one refresh: the sampled spot, the advisor's
// recommendation for it, and solver progress.
func renderDashboard(area *pterm.AreaPrinter, advisor *rtpa.Advisor, spot *poker.State) {
	advice, err := advisor.Strategy(spot)
	if err != nil {
		return
	}

	content, err := pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{getSpotPanel(spot), getAdvicePanel(advice, advisor.Equity(spot))},
		{getSolverPanel(advisor.Status())},
	}).Srender()
	if err != nil {
		return
	}
	area.Update(content)
}

// getSpotPanel formats the sampled decision point: hero cards, board,
// pot and stack sizes, and seating.
func getSpotPanel(s *poker.State) pterm.Panel {
	pbox := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTopPadding(1).WithBottomPadding(1)
	info := pterm.Sprintfln("Hero:  %s", pterm.LightCyan(cardString(s.Hole)))
	info += pterm.Sprintfln("Board: %s  (%s)", cardString(s.Community), s.Round)
	info += pterm.Sprintfln("Pot %.1f   Stack %.1f", s.Pot, s.Stack)
	info += pterm.Sprintf("Seat %d, %d players", s.Position, s.NumPlayers)
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightYellow("|CURRENT SPOT|")).WithTitleTopCenter().Sprint(info)}
}

// getAdvicePanel formats the recommendation: one line per legal action
// with its probability, the preferred action highlighted, and the
// estimated win probability underneath.
func getAdvicePanel(advice []rtpa.Advice, equity float64) pterm.Panel {
	best := 0
	for i := range advice {
		if advice[i].Prob > advice[best].Prob {
			best = i
		}
	}

	var b strings.Builder
	for i, a := range advice {
		line := fmt.Sprintf("%-12s %5.1f%%", a.Action, 100*a.Prob)
		if i == best {
			line = pterm.LightGreen(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Win probability %.1f%%", 100*equity))

	pbox := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTopPadding(1).WithBottomPadding(1)
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightYellow("|RECOMMENDATION|")).WithTitleTopCenter().Sprint(b.String())}
}

// getSolverPanel formats training progress and table sizes.
func getSolverPanel(st rtpa.Status) pterm.Panel {
	tr := st.Training
	state := pterm.LightCyan("training")
	switch {
	case tr.Converged:
		state = pterm.LightGreen("converged")
	case !tr.Running:
		state = pterm.LightRed("stopped")
	}

	info := pterm.Sprintfln("Status: %s   Iteration %d/%d", state, tr.Iterations, tr.MaxIterations)
	info += pterm.Sprintfln("Windowed convergence %.4f", tr.Convergence)
	info += pterm.Sprintfln("Elapsed %s   Remaining ~%s",
		tr.Elapsed.Round(time.Second), tr.Remaining.Round(time.Second))
	info += pterm.Sprintf("%d info sets   %d cached equities", st.InfoSets, st.CacheEntries)

	pbox := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTopPadding(1).WithBottomPadding(1)
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightYellow("|SOLVER|")).WithTitleTopCenter().Sprint(info)}
}

func cardString(cards []poker.Card) string {
	if len(cards) == 0 {
		return "--"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
