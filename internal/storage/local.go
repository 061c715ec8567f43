package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type hashEntry struct {
	size    int64
	modTime time.Time
	hash    string
}

// LocalCatalog 로컬 디렉터리 에셋 목록 (파일 해시는 크기/수정시각 기준으로 캐시)
type LocalCatalog struct {
	root string

	mu     sync.Mutex
	hashes map[string]hashEntry
}

// NewLocalCatalog 생성자
func NewLocalCatalog(root string) *LocalCatalog {
	return &LocalCatalog{root: root, hashes: make(map[string]hashEntry)}
}

// List 디렉터리를 순회하며 목록 생성
func (c *LocalCatalog) List(ctx context.Context) (AssetList, error) {
	list := AssetList{FilesKey: []AssetFile{}}
	if _, err := os.Stat(c.root); os.IsNotExist(err) {
		return list, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		hash, err := c.hash(p, info)
		if err != nil {
			return err
		}
		list.insert(filepath.ToSlash(rel), hash)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (c *LocalCatalog) hash(p string, info fs.FileInfo) (string, error) {
	if e, ok := c.hashes[p]; ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		return e.hash, nil
	}
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := hex.EncodeToString(h.Sum(nil))
	c.hashes[p] = hashEntry{size: info.Size(), modTime: info.ModTime(), hash: sum}
	return sum, nil
}
