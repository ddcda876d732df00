package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/clean-berry/TSNsched/common"
	"github.com/clean-berry/TSNsched/etcd"
	"github.com/clean-berry/TSNsched/flow"
	"github.com/clean-berry/TSNsched/middleware"
	"github.com/clean-berry/TSNsched/report"
	"github.com/clean-berry/TSNsched/scenario"
	"github.com/clean-berry/TSNsched/scheduler"
	"github.com/clean-berry/TSNsched/smt"
	"github.com/clean-berry/TSNsched/storage"
	"github.com/clean-berry/TSNsched/structs"
)

// log init
func initLogging(cfg structs.LogConfig) error {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create log dir %s: %w", cfg.Dir, err)
	}

	// Configure log rotation with lumberjack
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.File),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	// Output to both file and stdout
	log.SetOutput(io.MultiWriter(os.Stdout, fileLogger))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warningf("unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	log.Infof("Logging initialized: file=%s, stdout=enabled", fileLogger.Filename)
	return nil
}

func main() {
	configPath := flag.String("config", middleware.ConfigPath(), "path of the TOML configuration")
	flag.Parse()

	cfg, err := middleware.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading configuration failed, err:%v", err)
	}
	if err := initLogging(cfg.Log); err != nil {
		log.Fatalf("logging init failed, err:%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Errorf("scheduling failed, err:%v", err)
		stop()
		os.Exit(1)
	}
	log.Infof("scheduling finished")
}

func run(ctx context.Context, cfg *structs.Config) error {
	sc, err := scenario.Load(cfg.Scheduler.Scenario)
	if err != nil {
		return err
	}
	network, err := sc.Network()
	if err != nil {
		return err
	}
	upper := sc.PacketUpperBound
	if upper <= 0 {
		upper = cfg.Scheduler.PacketUpperBound
	}
	flows, err := sc.BuildFlows(network, flow.NewBuilder(upper))
	if err != nil {
		return err
	}

	sch := scheduler.New(network, flows)
	if err := sch.Compile(); err != nil {
		return err
	}

	files, err := storage.NewFileManager(cfg.Scheduler.OutputDir)
	if err != nil {
		return err
	}
	if prev, hash, ok := files.PreviousRun(); ok {
		log.Infof("previous run %s of scenario %s (%s, md5 %s) will be replaced",
			prev.RunID, prev.Scenario, prev.GeneratedAt.Format(time.RFC3339), hash)
		if prev.Scenario != sc.Name {
			log.Warnf("output dir %s held a report for scenario %s", cfg.Scheduler.OutputDir, prev.Scenario)
		}
	}
	if err := files.SaveConstraints(sch.WriteConstraints); err != nil {
		return err
	}
	log.Infof("constraints written to %s, md5 %s", files.ConstraintsPath(), files.GetConstraintsHash())

	if !cfg.Scheduler.Solve {
		return nil
	}

	timeout := time.Duration(cfg.Scheduler.SolverTimeoutSec) * time.Second
	solver, err := scheduler.NewGlobal(cfg.Scheduler.Solver, cfg.Scheduler.SolverPath, timeout)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, scheduler.ListGlobal())
	}
	model, err := sch.Solve(ctx, solver)
	if err != nil {
		if errors.Is(err, smt.ErrUnsat) {
			log.Errorf("scenario %s has no feasible schedule", sc.Name)
		}
		return err
	}
	if failed, err := sch.Verify(model); err != nil {
		return fmt.Errorf("model check failed: %w", err)
	} else if failed != nil {
		return fmt.Errorf("model violates %s", failed)
	}

	pool, err := common.NewPool(common.PoolConfig{MaxWorkers: cfg.Report.Workers})
	if err != nil {
		return err
	}
	defer pool.Release()

	rep := report.New(sc.Name, solver.Name())
	if err := report.Build(ctx, pool, sch.Session(), model, sch.Flows(), rep); err != nil {
		return err
	}
	if err := files.SaveReport(rep); err != nil {
		return err
	}
	log.Infof("report %s written to %s", rep.RunID, files.ReportPath())

	if !cfg.Etcd.Enabled {
		return nil
	}
	publisher, err := etcd.NewSchedulePublisher(etcd.EtcdConfig{
		Endpoints:   cfg.Etcd.Endpoints,
		DialTimeout: time.Duration(cfg.Etcd.DialTimeoutSec) * time.Second,
		Prefix:      cfg.Etcd.Prefix,
	})
	if err != nil {
		return err
	}
	defer publisher.Close()
	return publisher.Publish(ctx, rep, files.GetReportHash())
}
