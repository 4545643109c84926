package clock

import (
	"container/heap"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task 已调度的延时任务句柄
type Task struct {
	deadline int64 // 到期时间（Unix毫秒，未缩放壁钟）
	seq      uint64
	fn       func()
	canceled bool
	index    int
	s        *Scheduler
}

// Cancel 取消任务（已执行或已取消时为空操作）
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.s.mu.Lock()
	t.canceled = true
	t.s.mu.Unlock()
}

// Scheduler 按到期时间排序的任务队列
// 所有延时逻辑（去抖写盘、加速结算、目标自动巡检）都经由它调度，
// 宿主在主循环中调用 Drain 执行全部到期任务；没有后台协程，
// 回调在调用 Drain 的协程上执行，因此回调内允许再次调度或取消。
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	logger *zap.Logger
	seq    uint64
	queue  taskQueue
}

// NewScheduler 创建调度器
func NewScheduler(c Clock, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clock:  c,
		logger: logger,
	}
}

// Schedule 在delay之后执行fn，返回可取消的任务句柄
// delay小于等于0的任务会在下一次Drain时立即执行。
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *Task {
	return s.ScheduleAt(s.clock.NowMs()+delay.Milliseconds(), fn)
}

// ScheduleAt 在指定的绝对壁钟时刻（Unix毫秒）执行fn
func (s *Scheduler) ScheduleAt(deadlineMs int64, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	task := &Task{
		deadline: deadlineMs,
		seq:      s.seq,
		fn:       fn,
		s:        s,
	}
	heap.Push(&s.queue, task)
	return task
}

// Drain 执行所有已到期的任务，按到期时间顺序
// 到期判定使用进入Drain时的时刻快照：先摘下全部到期任务再执行，
// 执行期间新调度的零延时任务留到下一次Drain，回调自我调度
// 不会造成死循环。取消判定推迟到执行前，同一批里先执行的
// 回调可以取消后执行的任务。
func (s *Scheduler) Drain() int {
	nowMs := s.clock.NowMs()

	s.mu.Lock()
	var due []*Task
	for s.queue.Len() > 0 && s.queue[0].deadline <= nowMs {
		due = append(due, heap.Pop(&s.queue).(*Task))
	}
	s.mu.Unlock()

	executed := 0
	for _, task := range due {
		s.mu.Lock()
		canceled := task.canceled
		s.mu.Unlock()
		if canceled {
			continue
		}
		s.run(task)
		executed++
	}
	return executed
}

// Len 当前排队中的任务数（含已取消未清理的任务）
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// run 执行单个任务并兜住panic
func (s *Scheduler) run(task *Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("定时任务执行出错",
				zap.Any("panic", r),
				zap.Int64("deadline_ms", task.deadline))
		}
	}()
	task.fn()
}

// taskQueue 小顶堆，先比到期时间，再比入队序号保证同刻FIFO
type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].deadline != q[j].deadline {
		return q[i].deadline < q[j].deadline
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	task := x.(*Task)
	task.index = len(*q)
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[:n-1]
	return task
}
