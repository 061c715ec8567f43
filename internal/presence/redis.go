package presence

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// UpdatesChannel 접속 변경 이벤트 채널
const UpdatesChannel = "presence_updates"

// PresenceStatus 상태 상수
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "ONLINE"
	StatusOffline PresenceStatus = "OFFLINE"
)

// PresenceData 채널로 발행되는 상태 데이터
type PresenceData struct {
	Room      string         `json:"room"`
	User      string         `json:"user"`
	Status    PresenceStatus `json:"status"`
	Timestamp int64          `json:"timestamp"`
}

// Manager 방 접속 현황 관리자
type Manager struct {
	client *redis.Client
}

// NewManager 생성자
func NewManager(addr string, password string, db int) *Manager {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	return &Manager{client: rdb}
}

// NewManagerWithClient 외부에서 만든 클라이언트 사용 (테스트용)
func NewManagerWithClient(client *redis.Client) *Manager {
	return &Manager{client: client}
}

// Key 생성 유틸
func RoomKey(room string) string {
	return "presence:room:" + room
}

// Join 방 접속 기록 (같은 사용자의 여러 연결은 한 번만 기록됨)
func (m *Manager) Join(ctx context.Context, room, user string) error {
	if err := m.client.SAdd(ctx, RoomKey(room), user).Err(); err != nil {
		return err
	}
	return m.publish(ctx, PresenceData{Room: room, User: user, Status: StatusOnline, Timestamp: time.Now().Unix()})
}

// Leave 방 접속 해제
func (m *Manager) Leave(ctx context.Context, room, user string) error {
	if err := m.client.SRem(ctx, RoomKey(room), user).Err(); err != nil {
		return err
	}
	return m.publish(ctx, PresenceData{Room: room, User: user, Status: StatusOffline, Timestamp: time.Now().Unix()})
}

// Online 방에 접속 중인 사용자 (이름순)
func (m *Manager) Online(ctx context.Context, room string) ([]string, error) {
	users, err := m.client.SMembers(ctx, RoomKey(room)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}

// Rooms 접속자가 있는 방 목록
func (m *Manager) Rooms(ctx context.Context) ([]string, error) {
	var rooms []string
	iter := m.client.Scan(ctx, 0, RoomKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		rooms = append(rooms, iter.Val()[len(RoomKey("")):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(rooms)
	return rooms, nil
}

// Reset 서버 시작 시 이전 프로세스가 남긴 기록 삭제
func (m *Manager) Reset(ctx context.Context) error {
	rooms, err := m.Rooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if err := m.client.Del(ctx, RoomKey(room)).Err(); err != nil {
			return err
		}
	}
	if len(rooms) > 0 {
		log.Printf("[Presence] Cleared %d stale rooms", len(rooms))
	}
	return nil
}

// publish 상태 변경 이벤트 발행
func (m *Manager) publish(ctx context.Context, data PresenceData) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return m.client.Publish(ctx, UpdatesChannel, jsonData).Err()
}

// Subscribe 상태 변경 이벤트 구독 (채널 반환)
func (m *Manager) Subscribe(ctx context.Context) *redis.PubSub {
	return m.client.Subscribe(ctx, UpdatesChannel)
}

// Decode 구독 메시지 해석
func Decode(msg *redis.Message) (PresenceData, error) {
	var data PresenceData
	err := json.Unmarshal([]byte(msg.Payload), &data)
	return data, err
}

// Watch 상태 변경을 구독해 room(비어 있으면 전체)의 이벤트마다 handle 호출
// ctx 가 끝날 때까지 블로킹한다.
func (m *Manager) Watch(ctx context.Context, room string, handle func(PresenceData)) error {
	sub := m.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	relay(ctx, sub.Channel(), room, handle)
	return nil
}

func relay(ctx context.Context, ch <-chan *redis.Message, room string, handle func(PresenceData)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			data, err := Decode(msg)
			if err != nil {
				log.Printf("⚠️ [Presence] undecodable update on %s: %v", msg.Channel, err)
				continue
			}
			if room != "" && data.Room != room {
				continue
			}
			handle(data)
		}
	}
}

// Health 연결 확인
func (m *Manager) Health(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close 연결 종료
func (m *Manager) Close() error {
	return m.client.Close()
}
