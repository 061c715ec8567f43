package game

import (
	"sync"

	"tabletop-backend/internal/scene"
)

// Directory 사용자 이름 → 클라이언트 옵션 (Thread-Safe)
type Directory struct {
	mu      sync.RWMutex
	options map[string]map[string]any
}

// NewDirectory 생성자
func NewDirectory() *Directory {
	return &Directory{options: make(map[string]map[string]any)}
}

// Put 사용자 등록 (기존 옵션 덮어씀)
func (d *Directory) Put(name string, options map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.options[name] = scene.CloneOptions(options)
}

// Exists 등록된 사용자인지
func (d *Directory) Exists(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.options[name]
	return ok
}

// Options 사용자 옵션 사본
func (d *Directory) Options(name string) map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return scene.CloneOptions(d.options[name])
}

// MergeOptions 중첩 병합 후 결과 사본 반환
func (d *Directory) MergeOptions(name string, patch map[string]any) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.options[name] = scene.MergeOptions(d.options[name], patch)
	return scene.CloneOptions(d.options[name])
}

// Len 사용자 수
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.options)
}
