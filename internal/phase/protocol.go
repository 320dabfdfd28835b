package phase

import (
	"fmt"
	"time"

	"github.com/semg-lab/semgcal/internal/sample"
)

// Stimulus configures the rest or flex screen of every cycle.
type Stimulus struct {
	Duration      time.Duration
	ProgressUnits int
	Text          string
}

// Protocol is the timing of a whole calibration session.
type Protocol struct {
	Countdown        time.Duration
	Cycles           int
	ProgressInterval time.Duration
	Rest             Stimulus
	Flex             Stimulus
}

// DefaultProtocol is a 3 second countdown followed by two cycles of
// 4 seconds rest and 6 seconds flex.
func DefaultProtocol() Protocol {
	return Protocol{
		Countdown:        3 * time.Second,
		Cycles:           2,
		ProgressInterval: time.Second,
		Rest:             Stimulus{Duration: 4 * time.Second, ProgressUnits: 3, Text: "REST"},
		Flex:             Stimulus{Duration: 6 * time.Second, ProgressUnits: 5, Text: "FLEX"},
	}
}

// Phases expands the protocol into the ordered phase list: countdown,
// then rest/flex for each cycle. Flex text carries the 1-based cycle number.
func (p Protocol) Phases() []Phase {
	countdownUnits := 0
	if p.ProgressInterval > 0 {
		countdownUnits = int(p.Countdown / p.ProgressInterval)
	}

	phases := make([]Phase, 0, 1+2*p.Cycles)
	phases = append(phases, Phase{
		Kind:             KindCountdown,
		Duration:         p.Countdown,
		ProgressUnits:    countdownUnits,
		ProgressInterval: p.ProgressInterval,
	})
	for cycle := 0; cycle < p.Cycles; cycle++ {
		phases = append(phases,
			Phase{
				Kind:             KindRest,
				Duration:         p.Rest.Duration,
				Label:            sample.Rest,
				Collect:          true,
				Text:             p.Rest.Text,
				ProgressUnits:    p.Rest.ProgressUnits,
				ProgressInterval: p.ProgressInterval,
			},
			Phase{
				Kind:             KindFlex,
				Duration:         p.Flex.Duration,
				Label:            sample.Flex,
				Collect:          true,
				Text:             fmt.Sprintf("%s %d", p.Flex.Text, cycle+1),
				ProgressUnits:    p.Flex.ProgressUnits,
				ProgressInterval: p.ProgressInterval,
			},
		)
	}
	return phases
}

// Total returns the summed duration of all phases.
func (p Protocol) Total() time.Duration {
	return p.Countdown + time.Duration(p.Cycles)*(p.Rest.Duration+p.Flex.Duration)
}
