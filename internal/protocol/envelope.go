package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrUnknownEvent = errors.New("unknown event")
)

// Envelope 웹소켓 프레임 하나 ({"event": ..., "data": ...})
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message 디코딩된 클라이언트 메시지
type Message interface {
	EventName() string
}

// Encode 서버 → 클라이언트 프레임 생성
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type decoder struct {
	required []string
	shape    gjson.Type
	check    func(gjson.Result) bool
	new      func() Message
}

var registry = map[string]decoder{
	EventAddShape:           {required: []string{"shape.uuid", "shape.layer", "shape.type_"}, new: func() Message { return &AddShape{} }},
	EventRemoveShape:        {required: []string{"shape.uuid"}, new: func() Message { return &RemoveShape{} }},
	EventMoveShapeOrder:     {required: []string{"shape.uuid", "index"}, new: func() Message { return &MoveShapeOrder{} }},
	EventShapeMove:          {required: []string{"shape.uuid", "shape.type_"}, new: func() Message { return &ShapeMove{} }},
	EventUpdateShape:        {required: []string{"shape.uuid", "shape.type_"}, new: func() Message { return &UpdateShape{} }},
	EventSetClientOptions:   {check: gjson.Result.IsObject, new: func() Message { return &SetClientOptions{} }},
	EventSetLocationOptions: {check: gjson.Result.IsObject, new: func() Message { return &SetLocationOptions{} }},
	EventSetGridSize:        {shape: gjson.Number, new: func() Message { return &SetGridSize{} }},
	EventNewLocation:        {shape: gjson.String, new: func() Message { return &NewLocation{} }},
	EventChangeLocation:     {shape: gjson.String, new: func() Message { return &ChangeLocation{} }},
	EventBringPlayers:       {check: gjson.Result.IsObject, new: func() Message { return &BringPlayers{} }},
	EventShowAsset:          {new: func() Message { return &ShowAsset{} }},
	EventOwnerAdd:           {required: []string{"shape", "user"}, new: func() Message { return &OwnerAdd{} }},
	EventOwnerUpdate:        {required: []string{"shape", "user"}, new: func() Message { return &OwnerUpdate{} }},
	EventOwnerDelete:        {required: []string{"shape", "user"}, new: func() Message { return &OwnerDelete{} }},
	EventOwnerDefault:       {required: []string{"shape"}, new: func() Message { return &OwnerDefault{} }},
}

// Decode 프레임을 검증하고 이벤트별 타입으로 변환
func Decode(frame []byte) (Message, error) {
	if !gjson.ValidBytes(frame) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	env := gjson.ParseBytes(frame)
	event := env.Get("event").String()
	data := env.Get("data")

	if event == EventUpdateInitiative {
		return decodeInitiative(data)
	}

	s, ok := registry[event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if !data.Exists() {
		return nil, fmt.Errorf("%w: %s without data", ErrMalformed, event)
	}
	for _, path := range s.required {
		if v := data.Get(path); !v.Exists() || v.Type == gjson.Null || (v.Type == gjson.String && v.Str == "") {
			return nil, fmt.Errorf("%w: %s missing %s", ErrMalformed, event, path)
		}
	}
	if s.shape != gjson.Null && data.Type != s.shape {
		return nil, fmt.Errorf("%w: %s expects %s", ErrMalformed, event, s.shape)
	}
	if s.check != nil && !s.check(data) {
		return nil, fmt.Errorf("%w: %s payload shape", ErrMalformed, event)
	}

	msg := s.new()
	if err := json.Unmarshal([]byte(data.Raw), msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, event, err)
	}
	return msg, nil
}

func decodeInitiative(data gjson.Result) (Message, error) {
	if ghost := data.Get("ghostUuid"); ghost.Exists() {
		if ghost.String() == "" {
			return nil, fmt.Errorf("%w: empty ghostUuid", ErrMalformed)
		}
		return &RemoveGhostInitiative{UUID: ghost.String()}, nil
	}
	if data.Get("uuid").String() == "" {
		return nil, fmt.Errorf("%w: %s missing uuid", ErrMalformed, EventUpdateInitiative)
	}
	msg := &UpdateInitiative{}
	if err := json.Unmarshal([]byte(data.Raw), &msg.InitiativeUpdate); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, EventUpdateInitiative, err)
	}
	return msg, nil
}
