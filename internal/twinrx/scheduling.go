package twinrx

import "github.com/roach88/twinrx/internal/graph"

// DefaultRetuneLead is how far ahead of the command time the front-end is
// retuned while LO1 hops, in seconds.
const DefaultRetuneLead = 500e-6

// schedulingWorker derives one channel's front-end command time.
type schedulingWorker struct {
	ch      string
	lead    float64
	in, out []string
}

func newSchedulingWorker(ch string, lead float64) *schedulingWorker {
	return &schedulingWorker{
		ch:   ch,
		lead: lead,
		in:   []string{chNode(ch, nodeTimeCmd), comHopping(LO1)},
		out:  []string{chNode(ch, nodeTimeFrontend)},
	}
}

func (w *schedulingWorker) Name() string     { return chNode(w.ch, "scheduling") }
func (w *schedulingWorker) Reads() []string  { return w.in }
func (w *schedulingWorker) Writes() []string { return w.out }

func (w *schedulingWorker) Run(s *graph.Scope) error {
	t := graph.In[float64](s, chNode(w.ch, nodeTimeCmd))
	if graph.In[bool](s, comHopping(LO1)) {
		t = max(t-w.lead, 0)
	}
	graph.Out(s, chNode(w.ch, nodeTimeFrontend), t)
	return nil
}
