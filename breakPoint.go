package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/paulmach/orb/maptile"
	"github.com/pkg/errors"
)

var BreakPointInst *BreakPoint

// InitBreakPoint 初始化断点, only used when tiles are written to files.
func InitBreakPoint() {
	if conf.Output.Directory == "" || conf.BreakPoint.SaveFilePath == "" {
		return
	}
	name := strings.TrimSuffix(filepath.Base(conf.Input.Path), filepath.Ext(conf.Input.Path))
	bp, err := OpenBreakPoint(filepath.Join(conf.BreakPoint.SaveFilePath, name+".log"), conf.Task.Workers)
	if err != nil {
		log.Fatalf("break point file open error, details: %s", err)
	}
	BreakPointInst = bp
	SafeExitInst.Register(BreakPointInst.BreakPointSafeFun)
	log.Infof("断点记录: %s, 已完成 %d 个瓦片", bp.file.Name(), len(bp.successMap))
}

// BreakPoint 断点记录, one "z-x-y" line per finished tile
type BreakPoint struct {
	file       *os.File
	saveChan   chan maptile.Tile
	successMap map[string]struct{}
	done       chan struct{}

	mu      sync.Mutex
	isClose bool
}

// OpenBreakPoint loads finished tiles from path and starts the record writer.
func OpenBreakPoint(path string, buf int) (*BreakPoint, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "create break point directory")
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open break point file")
	}
	successMap, err := getBackPoint(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	b := &BreakPoint{
		file:       file,
		saveChan:   make(chan maptile.Tile, buf),
		successMap: successMap,
		done:       make(chan struct{}),
	}
	go b.Start()
	return b, nil
}

// getBackPoint 读取断点记录
func getBackPoint(file *os.File) (map[string]struct{}, error) {
	res := make(map[string]struct{})
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			res[line] = struct{}{}
		}
	}
	return res, errors.Wrap(sc.Err(), "read break point file")
}

// IsSuccessed reports whether the tile was finished by an earlier run.
func (b *BreakPoint) IsSuccessed(tile maptile.Tile) bool {
	_, ok := b.successMap[tileKey(tile)]
	return ok
}

// SetSuccessed queues the tile for recording. Calls after close are dropped.
func (b *BreakPoint) SetSuccessed(tile maptile.Tile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClose {
		return
	}
	b.saveChan <- tile
}

// Start 断点记录任务
func (b *BreakPoint) Start() {
	defer close(b.done)
	for tile := range b.saveChan {
		if _, err := fmt.Fprintln(b.file, tileKey(tile)); err != nil {
			log.Errorf("write break point %s error, details: %s", tileKey(tile), err)
		}
	}
}

// Close flushes queued records and closes the file.
func (b *BreakPoint) Close() error {
	b.mu.Lock()
	if b.isClose {
		b.mu.Unlock()
		return nil
	}
	b.isClose = true
	close(b.saveChan)
	b.mu.Unlock()
	<-b.done
	return b.file.Close()
}

func (b *BreakPoint) BreakPointSafeFun() {
	if err := b.Close(); err != nil {
		log.Errorf("close break point error, details: %s", err)
		return
	}
	log.Infof("断点记录任务已安全退出")
}
