package application

import (
	"context"
	"sync"
	"time"

	"dizzycode.xyz/trading-engine/pkg/logger"
)

// Task 週期性維護任務
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler 每個任務一個 goroutine，啟動時先跑一次再依 ticker 重複
type Scheduler struct {
	tasks    []Task
	logger   logger.Logger
	recorder Recorder
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewScheduler 創建排程器，recorder 可為 nil
func NewScheduler(log logger.Logger, recorder Recorder, tasks ...Task) *Scheduler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Scheduler{
		tasks:    tasks,
		logger:   log,
		recorder: recorder,
		now:      time.Now,
	}
}

// Start 啟動所有任務，ctx 取消後任務結束
func (s *Scheduler) Start(ctx context.Context) {
	for _, task := range s.tasks {
		if task.Interval <= 0 || task.Run == nil {
			s.logger.Warn("Skipping upkeep task without interval", map[string]any{
				"task": task.Name,
			})
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
}

// Wait 等待所有任務結束
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.runOnce(ctx, task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	start := s.now()
	err := task.Run(ctx)
	s.recorder.UpkeepRun(task.Name, s.now().Sub(start), err)
	if err != nil && ctx.Err() == nil {
		s.logger.Error("Upkeep task failed", map[string]any{
			"task":  task.Name,
			"error": err,
		})
	}
}
