package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/teris-io/shortid"
	pb "gopkg.in/cheggaaa/pb.v1"

	"mvtdump/mvt"
)

func InitTask() {
	start := time.Now()

	if conf.Input.Path == "" {
		usageExit()
	}
	store, err := OpenMBTiles(conf.Input.Path)
	if err != nil {
		log.Fatalf("open tiles error, details: %s", err)
	}
	defer store.Close()

	ts, err := store.Metadata()
	if err != nil {
		log.Warnf("read metadata error, details: %s", err)
	}
	if !ts.IsVector() {
		log.Fatalf("tileset %s has format %q, not vector tiles", conf.Input.Path, ts.Format)
	}
	log.Infof("tileset: %s, format: %s, zoom: %d-%d", ts.Name, ts.Format, ts.MinZoom, ts.MaxZoom)

	bound, err := loadBound(conf.Input.Bounds)
	if err != nil {
		log.Fatalf("input bounds error, details: %s", err)
	}
	renderer, err := NewRenderer(conf.Output.Format, RenderOptions{
		Color: conf.Output.Color && conf.Output.Directory == "" && isatty.IsTerminal(os.Stdout.Fd()),
		WGS84: conf.Output.WGS84,
	})
	if err != nil {
		log.Fatal(err)
	}

	task := NewTask(store, TaskOptions{
		Name:         filepath.Base(conf.Input.Path),
		Filter:       Filter{MinZoom: conf.Input.MinZoom, MaxZoom: conf.Input.MaxZoom, Bound: bound},
		Renderer:     renderer,
		Out:          os.Stdout,
		Directory:    conf.Output.Directory,
		PathTemplate: conf.Output.PathTemplate,
		Decode: mvt.DecodeOptions{
			SkipUnknownCommands: !conf.Decode.StrictCommands,
			SkipBadFeatures:     conf.Decode.SkipBadFeatures,
		},
		SkipBadTiles: conf.Decode.SkipBadTiles,
		Workers:      conf.Task.Workers,
		BufSize:      conf.Task.BufSize,
		BreakPoint:   BreakPointInst,
		Progress:     isatty.IsTerminal(os.Stderr.Fd()),
	})
	// 注册安全退出
	SafeExitInst.Register(task.AbortFun)

	err = task.Run()
	SafeExitInst.Run()
	secs := time.Since(start).Seconds()
	if err != nil {
		log.Errorf("Task %s failed after %.3fs, details: %s", task.ID, secs, err)
		os.Exit(1)
	}
	log.Infof("Task %s %.3fs finished, decoded: %d, failed: %d, skipped: %d",
		task.ID, secs, task.Decoded(), task.Failed(), task.Skipped())
}

func usageExit() {
	usage()
	os.Exit(1)
}

// TaskOptions 解码任务参数
type TaskOptions struct {
	Name         string
	Filter       Filter
	Renderer     Renderer
	Out          io.Writer // used when Directory is empty
	Directory    string
	PathTemplate string
	Decode       mvt.DecodeOptions
	SkipBadTiles bool
	Workers      int
	BufSize      int
	BreakPoint   *BreakPoint // optional, file output only
	Progress     bool
}

// Task 解码任务
type Task struct {
	ID    string
	Name  string
	Total int64
	Bar   *pb.ProgressBar

	store *MBTiles
	opts  TaskOptions

	decoded int64
	failed  int64
	skipped int64

	tileWG  sync.WaitGroup
	workers chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

type tileResult struct {
	seq  int64
	tile Tile
	dt   *DecodedTile
	err  error
}

// NewTask 创建解码任务
func NewTask(store *MBTiles, opts TaskOptions) *Task {
	id, _ := shortid.Generate()
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BufSize < opts.Workers {
		opts.BufSize = opts.Workers
	}
	task := &Task{
		ID:      id,
		Name:    opts.Name,
		store:   store,
		opts:    opts,
		workers: make(chan struct{}, opts.Workers),
		done:    make(chan struct{}),
	}
	task.ctx, task.cancel = context.WithCancel(context.Background())
	return task
}

func (task *Task) Decoded() int64 { return atomic.LoadInt64(&task.decoded) }
func (task *Task) Failed() int64 { return atomic.LoadInt64(&task.failed) }
func (task *Task) Skipped() int64 { return atomic.LoadInt64(&task.skipped) }

// AbortFun 结束任务, waits briefly for in-flight tiles to be written
func (task *Task) AbortFun() {
	task.cancel()
	select {
	case <-task.done:
	case <-time.After(5 * time.Second):
		log.Warnf("Task %s did not stop in time", task.ID)
	}
}

// Run decodes every matching tile. Tiles are decoded concurrently and
// written in container order.
func (task *Task) Run() error {
	defer close(task.done)
	defer task.cancel()

	total, err := task.store.Count(task.opts.Filter)
	if err != nil {
		return err
	}
	task.Total = total
	log.Infof("Task %s: %s, tiles: %d, workers: %d", task.ID, task.Name, total, task.opts.Workers)
	if task.opts.Progress {
		task.Bar = pb.New64(total).Prefix(fmt.Sprintf("%s : ", task.Name))
		task.Bar.Output = os.Stderr
		task.Bar.SetRefreshRate(time.Second)
		task.Bar.Start()
	}

	tilelist := make(chan Tile, task.opts.BufSize)
	visitErr := make(chan error, 1)
	go func() {
		defer close(tilelist)
		visitErr <- task.store.VisitTiles(task.ctx, task.opts.Filter, func(t Tile) error {
			select {
			case tilelist <- t:
				return nil
			case <-task.ctx.Done():
				return task.ctx.Err()
			}
		})
	}()

	results := make(chan tileResult, task.opts.BufSize)
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- task.collect(results)
	}()

	var seq int64
loop:
	for tile := range tilelist {
		// 已在断点记录中
		if task.opts.BreakPoint != nil && task.opts.BreakPoint.IsSuccessed(tile.T) {
			atomic.AddInt64(&task.skipped, 1)
			task.increment()
			continue
		}
		select {
		case task.workers <- struct{}{}:
			task.tileWG.Add(1)
			go task.tileWorker(seq, tile, results)
			seq++
		case <-task.ctx.Done():
			log.Infof("Task %s got canceled.", task.Name)
			break loop
		}
	}
	// 等待所有瓦片结束
	task.tileWG.Wait()
	close(results)
	werr := <-writeErr
	verr := <-visitErr

	if task.Bar != nil {
		task.Bar.FinishPrint(fmt.Sprintf("Task %s finished ~", task.ID))
	}
	if werr != nil {
		return werr
	}
	if verr != nil && errors.Cause(verr) != context.Canceled {
		return verr
	}
	return nil
}

func (task *Task) increment() {
	if task.Bar != nil {
		task.Bar.Increment()
	}
}

// tileWorker 瓦片解码
func (task *Task) tileWorker(seq int64, tile Tile, results chan<- tileResult) {
	defer func() {
		task.tileWG.Done()
		<-task.workers
	}()
	start := time.Now()
	dt, err := decodeTile(tile, task.opts.Decode)
	log.Debugf("tile(z:%d, x:%d, y:%d), %dms, %.2f kb", tile.T.Z, tile.T.X, tile.T.Y,
		time.Since(start).Milliseconds(), float32(len(tile.Data))/1024.0)
	results <- tileResult{seq: seq, tile: tile, dt: dt, err: err}
}

// collect restores container order and writes results. The first write
// error, or decode error without SkipBadTiles, cancels the task.
func (task *Task) collect(results <-chan tileResult) error {
	var (
		firstErr error
		next     int64
		pending  = make(map[int64]tileResult)
	)
	for r := range results {
		pending[r.seq] = r
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if firstErr != nil {
				continue
			}
			if err := task.write(p); err != nil {
				firstErr = err
				task.cancel()
			}
			task.increment()
		}
	}
	return firstErr
}

func (task *Task) write(r tileResult) error {
	var buf bytes.Buffer
	err := r.err
	if err == nil {
		err = errors.Wrapf(task.opts.Renderer.Render(&buf, r.dt), "render tile %s", r.tile.Key())
	}
	if err != nil {
		atomic.AddInt64(&task.failed, 1)
		if task.opts.SkipBadTiles {
			log.Warnf("skip tile %s, details: %s", r.tile.Key(), err)
			return nil
		}
		return err
	}

	if task.opts.Directory == "" {
		if _, err := task.opts.Out.Write(buf.Bytes()); err != nil {
			return errors.Wrapf(err, "write tile %s", r.tile.Key())
		}
		atomic.AddInt64(&task.decoded, 1)
		return nil
	}

	path := TilePath(task.opts.Directory, task.opts.PathTemplate, r.tile.T, task.opts.Renderer.Ext())
	if err := saveToFiles(path, buf.Bytes()); err != nil {
		return err
	}
	if task.opts.BreakPoint != nil {
		task.opts.BreakPoint.SetSuccessed(r.tile.T)
	}
	atomic.AddInt64(&task.decoded, 1)
	return nil
}

// decodeTile inflates, parses and assembles one tile.
func decodeTile(tile Tile, opts mvt.DecodeOptions) (*DecodedTile, error) {
	data, err := decompress(tile.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "tile %s", tile.Key())
	}
	vt, err := mvt.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "tile %s", tile.Key())
	}
	dt := &DecodedTile{T: tile.T, Layers: make([]*mvt.DecodedLayer, 0, len(vt.Layers))}
	for i := range vt.Layers {
		dl, err := mvt.AssembleLayer(&vt.Layers[i], opts)
		if err != nil {
			return nil, errors.Wrapf(err, "tile %s layer %s", tile.Key(), vt.Layers[i].Name)
		}
		for _, ferr := range dl.Errors {
			log.Warnf("tile %s layer %s: skip %s", tile.Key(), dl.Name, ferr)
		}
		dt.Layers = append(dt.Layers, dl)
	}
	return dt, nil
}
