package etcd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	log "github.com/sirupsen/logrus"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/clean-berry/TSNsched/report"
)

const DefaultPrefix = "/tsnsched/schedules"

var ErrNoSchedule = errors.New("no schedule found")

// RunSummary is stored next to the flow schedules of one run.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Scenario    string    `json:"scenario"`
	Solver      string    `json:"solver"`
	ReportHash  string    `json:"report_hash"`
	Flows       []string  `json:"flows"`
	GeneratedAt time.Time `json:"generated_at"`
	PublishedAt time.Time `json:"published_at"`
}

type EtcdConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string
}

func DefaultEtcdConfig() EtcdConfig {
	return EtcdConfig{
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
		Prefix:      DefaultPrefix,
	}
}

// SchedulePublisher writes solved schedules to etcd so that switch agents
// can pick up the flows they forward.
type SchedulePublisher struct {
	client      *clientv3.Client
	kv          clientv3.KV
	publisherID string
	config      EtcdConfig
}

func NewSchedulePublisher(config EtcdConfig) (*SchedulePublisher, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: config.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	p := newPublisher(client, config)
	p.client = client
	return p, nil
}

func newPublisher(kv clientv3.KV, config EtcdConfig) *SchedulePublisher {
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	return &SchedulePublisher{
		kv:          kv,
		publisherID: fmt.Sprintf("publisher-%d", time.Now().Unix()),
		config:      config,
	}
}

func (p *SchedulePublisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

// FlowKey is the key holding the schedule of flow in run runID.
func (p *SchedulePublisher) FlowKey(runID, flow string) string {
	return path.Join(p.config.Prefix, runID, flow)
}

func (p *SchedulePublisher) SummaryKey(runID string) string {
	return path.Join(p.config.Prefix, runID, "_summary")
}

// Publish stores every flow report of r and then the run summary. Agents
// watching the summary key see complete runs only.
func (p *SchedulePublisher) Publish(ctx context.Context, r *report.Report, reportHash string) error {
	summary := RunSummary{
		RunID:       r.RunID,
		Scenario:    r.Scenario,
		Solver:      r.Solver,
		ReportHash:  reportHash,
		GeneratedAt: r.GeneratedAt,
	}
	for _, fr := range r.Flows {
		data, err := json.Marshal(fr)
		if err != nil {
			return fmt.Errorf("failed to marshal flow %s: %w", fr.Flow, err)
		}
		if _, err := p.kv.Put(ctx, p.FlowKey(r.RunID, fr.Flow), string(data)); err != nil {
			return fmt.Errorf("failed to publish flow %s: %w", fr.Flow, err)
		}
		summary.Flows = append(summary.Flows, fr.Flow)
	}

	summary.PublishedAt = time.Now()
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if _, err := p.kv.Put(ctx, p.SummaryKey(r.RunID), string(data)); err != nil {
		return fmt.Errorf("failed to publish summary: %w", err)
	}
	log.Infof("[%s] Schedule published: run %s, %d flows", p.publisherID, r.RunID, len(summary.Flows))
	return nil
}

func (p *SchedulePublisher) get(ctx context.Context, key string, v any) error {
	resp, err := p.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return fmt.Errorf("%s: %w", key, ErrNoSchedule)
	}
	if err := json.Unmarshal(resp.Kvs[0].Value, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (p *SchedulePublisher) GetFlowSchedule(ctx context.Context, runID, flow string) (*report.FlowReport, error) {
	var fr report.FlowReport
	if err := p.get(ctx, p.FlowKey(runID, flow), &fr); err != nil {
		return nil, err
	}
	return &fr, nil
}

func (p *SchedulePublisher) GetSummary(ctx context.Context, runID string) (*RunSummary, error) {
	var s RunSummary
	if err := p.get(ctx, p.SummaryKey(runID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
