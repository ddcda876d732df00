package report

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/clean-berry/TSNsched/flow"
	"github.com/clean-berry/TSNsched/smt"
)

// FragmentSchedule is the solved timing of one fragment.
type FragmentSchedule struct {
	Fragment  string    `json:"fragment"`
	Node      string    `json:"node"`
	NextHop   string    `json:"next_hop"`
	Priority  int64     `json:"priority"`
	Departure []float64 `json:"departure"`
	Scheduled []float64 `json:"scheduled"`
	Arrival   []float64 `json:"arrival"`
}

// DestinationReport holds the per packet latency and jitter towards one
// destination.
type DestinationReport struct {
	Destination    string    `json:"destination"`
	Latencies      []float64 `json:"latencies"`
	AverageLatency float64   `json:"average_latency"`
	WorstLatency   float64   `json:"worst_latency"`
	Jitters        []float64 `json:"jitters"`
	AverageJitter  float64   `json:"average_jitter"`
}

type FlowReport struct {
	Flow             string              `json:"flow"`
	Kind             string              `json:"kind"`
	FirstSendingTime float64             `json:"first_sending_time"`
	Periodicity      float64             `json:"periodicity"`
	AverageLatency   float64             `json:"average_latency"`
	AverageJitter    float64             `json:"average_jitter"`
	Destinations     []DestinationReport `json:"destinations"`
	Fragments        []FragmentSchedule  `json:"fragments"`
}

// Report is the outcome of one scheduling run.
type Report struct {
	RunID       string       `json:"run_id"`
	Scenario    string       `json:"scenario"`
	Solver      string       `json:"solver"`
	GeneratedAt time.Time    `json:"generated_at"`
	Flows       []FlowReport `json:"flows"`
}

func New(scenario, solver string) *Report {
	return &Report{
		RunID:       uuid.NewString(),
		Scenario:    scenario,
		Solver:      solver,
		GeneratedAt: time.Now(),
	}
}

// Flow returns the report of the flow with the given name.
func (r *Report) Flow(name string) (*FlowReport, bool) {
	for i := range r.Flows {
		if r.Flows[i].Flow == name {
			return &r.Flows[i], true
		}
	}
	return nil, false
}

func toFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}

func mean(values []*big.Rat) *big.Rat {
	sum := new(big.Rat)
	for _, v := range values {
		sum.Add(sum, v)
	}
	if len(values) == 0 {
		return sum
	}
	return sum.Quo(sum, new(big.Rat).SetInt64(int64(len(values))))
}

func floats(values []*big.Rat) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = toFloat(v)
	}
	return out
}

// EvaluateFlow computes the report of a compiled flow under ev. Averages are
// exact; the flow wide values are the mean over destinations.
func EvaluateFlow(fl *flow.Flow, ev *smt.Evaluator) (FlowReport, error) {
	fr := FlowReport{
		Flow:        fl.Name(),
		Kind:        fl.Kind().String(),
		Periodicity: fl.Params().Periodicity,
	}
	if !fl.Compiled() {
		return fr, fmt.Errorf("flow %s: %w", fl.Name(), flow.ErrNotCompiled)
	}
	fst, err := ev.Float(fl.FirstSendingTime())
	if err != nil {
		return fr, fmt.Errorf("flow %s first sending time: %w", fl.Name(), err)
	}
	fr.FirstSendingTime = fst

	var latAvgs, jitAvgs []*big.Rat
	for _, dest := range fl.Destinations() {
		dr, latAvg, jitAvg, err := evaluateDestination(fl, ev, dest)
		if err != nil {
			return fr, err
		}
		fr.Destinations = append(fr.Destinations, dr)
		latAvgs = append(latAvgs, latAvg)
		jitAvgs = append(jitAvgs, jitAvg)
	}
	fr.AverageLatency = toFloat(mean(latAvgs))
	fr.AverageJitter = toFloat(mean(jitAvgs))

	for _, frag := range fl.Fragments() {
		fs, err := evaluateFragment(frag, ev)
		if err != nil {
			return fr, fmt.Errorf("flow %s: %w", fl.Name(), err)
		}
		fr.Fragments = append(fr.Fragments, fs)
	}
	return fr, nil
}

func evaluateDestination(fl *flow.Flow, ev *smt.Evaluator, dest string) (DestinationReport, *big.Rat, *big.Rat, error) {
	dr := DestinationReport{Destination: dest}
	count, err := fl.PacketCountTo(dest)
	if err != nil {
		return dr, nil, nil, err
	}
	latencies := make([]*big.Rat, 0, count)
	worst := new(big.Rat)
	for i := 0; i < count; i++ {
		e, err := fl.LatencyExpr(dest, i)
		if err != nil {
			return dr, nil, nil, err
		}
		lat, err := ev.Value(e)
		if err != nil {
			return dr, nil, nil, fmt.Errorf("flow %s latency of packet %d for %s: %w", fl.Name(), i, dest, err)
		}
		if i == 0 || lat.Cmp(worst) > 0 {
			worst.Set(lat)
		}
		latencies = append(latencies, lat)
	}
	avg := mean(latencies)
	jitters := make([]*big.Rat, len(latencies))
	for i, lat := range latencies {
		jitters[i] = new(big.Rat).Sub(lat, avg)
		jitters[i].Abs(jitters[i])
	}
	jitAvg := mean(jitters)

	dr.Latencies = floats(latencies)
	dr.AverageLatency = toFloat(avg)
	dr.WorstLatency = toFloat(worst)
	dr.Jitters = floats(jitters)
	dr.AverageJitter = toFloat(jitAvg)
	return dr, avg, jitAvg, nil
}

func evaluateFragment(frag *flow.Fragment, ev *smt.Evaluator) (FragmentSchedule, error) {
	fs := FragmentSchedule{
		Fragment: frag.Name(),
		Node:     frag.NodeName(),
		NextHop:  frag.NextHop(),
	}
	prio, err := ev.Value(frag.Priority())
	if err != nil {
		return fs, fmt.Errorf("%s priority: %w", frag.Name(), err)
	}
	fs.Priority = new(big.Int).Quo(prio.Num(), prio.Denom()).Int64()

	for _, e := range frag.DepartureSeries() {
		v, err := ev.Float(e)
		if err != nil {
			return fs, fmt.Errorf("%s departure: %w", frag.Name(), err)
		}
		fs.Departure = append(fs.Departure, v)
	}
	for _, e := range frag.ScheduledSeries() {
		v, err := ev.Float(e)
		if err != nil {
			return fs, fmt.Errorf("%s scheduled time: %w", frag.Name(), err)
		}
		fs.Scheduled = append(fs.Scheduled, v)
	}
	for _, e := range frag.ArrivalSeries() {
		v, err := ev.Float(e)
		if err != nil {
			return fs, fmt.Errorf("%s arrival: %w", frag.Name(), err)
		}
		fs.Arrival = append(fs.Arrival, v)
	}
	return fs, nil
}
