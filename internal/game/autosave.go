package game

import (
	"context"
	"log"
	"time"

	"tabletop-backend/internal/scene"
)

// Persister 영구 저장소
type Persister interface {
	SaveRoom(ctx context.Context, room *scene.Room) error
	SaveUserOptions(ctx context.Context, name string, options map[string]any) error
}

type saveJob struct {
	room    *scene.Room
	user    string
	options map[string]any
}

// Saver 저장 요청을 큐에 넣고 워커 하나가 순서대로 기록
// 큐가 가득 차면 요청을 버린다 (다음 주기 저장에서 복구).
type Saver struct {
	store   Persister
	jobs    chan saveJob
	timeout time.Duration
	done    chan struct{}
}

// NewSaver 생성자
func NewSaver(store Persister, queueSize int, timeout time.Duration) *Saver {
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Saver{
		store:   store,
		jobs:    make(chan saveJob, queueSize),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// SaveRoom 방 사본 저장 요청 (논블로킹)
func (s *Saver) SaveRoom(room *scene.Room) {
	s.enqueue(saveJob{room: room})
}

// SaveUser 클라이언트 옵션 저장 요청 (논블로킹)
func (s *Saver) SaveUser(name string, options map[string]any) {
	s.enqueue(saveJob{user: name, options: options})
}

func (s *Saver) enqueue(job saveJob) {
	select {
	case s.jobs <- job:
	default:
		log.Printf("⚠️ [Saver] queue full, dropping %s", job.describe())
	}
}

// Run ctx 가 끝날 때까지 처리, 종료 시 남은 요청을 비운다
func (s *Saver) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case job := <-s.jobs:
			s.process(job)
		}
	}
}

// Done Run 종료 신호
func (s *Saver) Done() <-chan struct{} {
	return s.done
}

func (s *Saver) drain() {
	for {
		select {
		case job := <-s.jobs:
			s.process(job)
		default:
			return
		}
	}
}

func (s *Saver) process(job saveJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var err error
	if job.room != nil {
		err = s.store.SaveRoom(ctx, job.room)
	} else {
		err = s.store.SaveUserOptions(ctx, job.user, job.options)
	}
	if err != nil {
		log.Printf("❌ [Saver] %s failed: %v", job.describe(), err)
	}
}

func (j saveJob) describe() string {
	if j.room != nil {
		return "room " + j.room.Key().String()
	}
	return "options of " + j.user
}

// RunPeriodic interval 마다 모든 방 저장 요청
func RunPeriodic(ctx context.Context, interval time.Duration, hub *Hub, saves SaveQueue) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rooms := hub.Snapshot()
			for _, r := range rooms {
				saves.SaveRoom(r)
			}
			log.Printf("💾 [Saver] periodic save queued for %d rooms", len(rooms))
		}
	}
}

// Flush 모든 방을 동기적으로 저장 (종료 시)
func Flush(ctx context.Context, hub *Hub, store Persister) error {
	var firstErr error
	for _, r := range hub.Snapshot() {
		if err := store.SaveRoom(ctx, r); err != nil {
			log.Printf("❌ [Saver] final save of %s failed: %v", r.Key(), err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
