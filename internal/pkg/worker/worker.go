package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/manmiddle614-crypto/backend/pkg/logger"
	"github.com/manmiddle614-crypto/backend/pkg/metrics"

	"go.uber.org/zap"
)

// Task 异步任务 (通知推送、审计落库、批次归档等)
type Task interface {
	Kind() string
	Run(ctx context.Context) error
}

// Dispatcher 任务投递接口，核销流程只依赖它
type Dispatcher interface {
	Submit(task Task) bool
}

// TaskFunc 用函数快速构造任务
type TaskFunc struct {
	Name string
	Fn   func(ctx context.Context) error
}

func (t TaskFunc) Kind() string                  { return t.Name }
func (t TaskFunc) Run(ctx context.Context) error { return t.Fn(ctx) }

var errTaskPanicked = errors.New("task panicked")

type job struct {
	task  Task
	retry int // 重试次数
}

type WorkerPool struct {
	TaskQueue   chan job
	RetryQueue  chan job // 重试队列
	WorkerNum   int
	MaxRetry    int           // 最大重试次数
	RetryDelay  time.Duration // 第 n 次重试等待 n*RetryDelay
	TaskTimeout time.Duration

	metrics *metrics.MetricsCollector
	quit    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewWorkerPool(workerNum int, bufferSize int, mc *metrics.MetricsCollector) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &WorkerPool{
		TaskQueue:   make(chan job, bufferSize),
		RetryQueue:  make(chan job, bufferSize/2+1),
		WorkerNum:   workerNum,
		MaxRetry:    3, // 最多重试3次
		RetryDelay:  time.Second,
		TaskTimeout: 10 * time.Second,
		metrics:     mc,
		quit:        make(chan struct{}),
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	// 启动重试处理协程
	p.wg.Add(1)
	go p.retryWorker()
	logger.Log.Info("worker pool started", zap.Int("workers", p.WorkerNum))
}

// Stop 停止接收新任务，等待进行中的任务结束；队列中剩余任务会被丢弃并记录
func (p *WorkerPool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()

	for {
		select {
		case j := <-p.TaskQueue:
			p.logFailedTask(j, nil)
		case j := <-p.RetryQueue:
			p.logFailedTask(j, nil)
		default:
			return
		}
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.TaskQueue:
			p.metrics.SetQueueDepth(len(p.TaskQueue))
			p.handle(id, j)
		}
	}
}

func (p *WorkerPool) handle(id int, j job) {
	err := p.processTask(j.task)
	if err == nil {
		p.metrics.RecordTask(j.task.Kind(), "ok")
		return
	}

	logger.Log.Warn("task failed",
		zap.Int("worker", id),
		zap.String("kind", j.task.Kind()),
		zap.Int("attempt", j.retry+1),
		zap.Error(err),
	)

	// panic 的任务不重试；未达到最大重试次数的加入重试队列
	if !errors.Is(err, errTaskPanicked) && j.retry < p.MaxRetry {
		j.retry++
		select {
		case p.RetryQueue <- j:
			p.metrics.RecordTask(j.task.Kind(), "retry")
		default:
			p.logFailedTask(j, err)
		}
		return
	}
	p.logFailedTask(j, err)
}

func (p *WorkerPool) retryWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.RetryQueue:
			// 延迟重试，避免立即重试
			select {
			case <-time.After(time.Duration(j.retry) * p.RetryDelay):
			case <-p.quit:
				p.logFailedTask(j, nil)
				return
			}

			// 重新加入主队列
			select {
			case p.TaskQueue <- j:
			default:
				p.logFailedTask(j, nil)
			}
		}
	}
}

func (p *WorkerPool) processTask(task Task) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.TaskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("task panicked", zap.String("kind", task.Kind()), zap.Any("panic", r))
			err = errTaskPanicked
		}
	}()
	return task.Run(ctx)
}

// logFailedTask 最终失败的任务只记录日志
// TODO: 写入死信表，供运营补发通知
func (p *WorkerPool) logFailedTask(j job, err error) {
	p.metrics.RecordTask(j.task.Kind(), "dropped")
	logger.Log.Error("task dropped",
		zap.String("kind", j.task.Kind()),
		zap.Int("attempts", j.retry+1),
		zap.Error(err),
	)
}

// Submit 投递任务，队列已满或已停止时丢弃并返回 false
func (p *WorkerPool) Submit(task Task) bool {
	select {
	case <-p.quit:
		p.logFailedTask(job{task: task}, nil)
		return false
	default:
	}

	select {
	case p.TaskQueue <- job{task: task}:
		p.metrics.SetQueueDepth(len(p.TaskQueue))
		return true
	default:
		p.logFailedTask(job{task: task}, nil)
		return false
	}
}

// Inline 同步执行任务的 Dispatcher，用于测试和命令行工具
type Inline struct{}

func (Inline) Submit(task Task) bool {
	if err := task.Run(context.Background()); err != nil {
		logger.Log.Warn("inline task failed", zap.String("kind", task.Kind()), zap.Error(err))
		return false
	}
	return true
}
