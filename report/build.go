package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/flow"
	"github.com/clean-berry/TSNsched/smt"
)

// Build evaluates every flow on pool and stores the results in r in flow
// order. The session must not change while Build runs.
func Build(ctx context.Context, pool *ants.Pool, s *smt.Session, model smt.Model, flows []*flow.Flow, r *Report) error {
	results := make([]FlowReport, len(flows))
	errs := make([]error, len(flows))

	var wg sync.WaitGroup
	for i, fl := range flows {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = EvaluateFlow(fl, s.Evaluator(model))
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("flow %s: submit failed: %w", fl.Name(), err)
		}
	}
	wg.Wait()

	var result *multierror.Error
	for i := range flows {
		if errs[i] != nil {
			result = multierror.Append(result, errs[i])
			continue
		}
		r.Flows = append(r.Flows, results[i])
	}
	log.Infof("report %s: %d flows evaluated, %d failed", r.RunID, len(r.Flows), len(flows)-len(r.Flows))
	return result.ErrorOrNil()
}
