package storage

import (
	"context"
	"path"
	"strings"
)

// FilesKey 폴더 안 파일 목록의 키
const FilesKey = "__files"

// AssetFile 에셋 파일 (hash 는 클라이언트가 /static/assets/<hash> 로 요청)
type AssetFile struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// AssetList 폴더 트리. 하위 폴더는 AssetList, 파일은 FilesKey 아래 []AssetFile
type AssetList map[string]any

// Catalog 에셋 목록 제공자
type Catalog interface {
	List(ctx context.Context) (AssetList, error)
}

// insert 슬래시 경로 기준으로 파일을 트리에 넣는다
func (l AssetList) insert(relPath string, hash string) {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return
	}
	dir, name := path.Split(relPath)
	node := l
	for _, folder := range strings.Split(strings.Trim(dir, "/"), "/") {
		if folder == "" {
			continue
		}
		child, ok := node[folder].(AssetList)
		if !ok {
			child = AssetList{}
			node[folder] = child
		}
		node = child
	}
	files, _ := node[FilesKey].([]AssetFile)
	node[FilesKey] = append(files, AssetFile{Name: name, Hash: hash})
}

// Empty 빈 카탈로그
type Empty struct{}

func (Empty) List(context.Context) (AssetList, error) {
	return AssetList{FilesKey: []AssetFile{}}, nil
}
