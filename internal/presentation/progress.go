// internal/presentation/progress.go
package presentation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

var stageHints = map[dom.Stage]string{
	dom.StageBuilding:   "building instructions",
	dom.StageAssembling: "fetching recent blockhash",
	dom.StageSigning:    "waiting for wallet approval",
	dom.StageSubmitting: "broadcasting",
	dom.StageConfirming: "waiting for confirmation",
	dom.StageRecording:  "recording issuance",
	dom.StageDone:       "done",
}

// Progress prints one line per stage event.
type Progress struct {
	mu  sync.Mutex
	out io.Writer
}

var _ app.Observer = (*Progress)(nil)

func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

func (p *Progress) OnStage(_ context.Context, ev app.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Stage == dom.StageFailed {
		fmt.Fprintf(p.out, "✗ %s failed (%s) after %s\n", ev.Previous, ev.Kind, ev.Elapsed.Round(time.Millisecond))
		return
	}

	n := 0
	for i, s := range dom.Stages {
		if s == ev.Stage {
			n = i + 1
		}
	}
	line := fmt.Sprintf("[%d/%d] %s: %s", n, len(dom.Stages), ev.Stage, stageHints[ev.Stage])
	if ev.Stage == dom.StageAssembling && ev.MintAddress != "" {
		line += " mint=" + ev.MintAddress
	}
	if ev.Stage == dom.StageConfirming && ev.Reference != "" {
		line += " tx=" + ev.Reference
	}
	fmt.Fprintln(p.out, line)
}
