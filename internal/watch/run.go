package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// Reason 描述循环结束的原因。
type Reason string

const (
	ReasonInterrupt Reason = "interrupt"
	ReasonStop      Reason = "stop_marker"
	ReasonFailure   Reason = "failure"
)

// Run 立即执行首个 pass，之后每隔 Interval（或被文件事件提前唤醒）再执行，直到：
// - ctx 取消（手动中断，返回 nil）；
// - 读到停止标记（返回 nil）；
// - pass 返回致命错误（返回该错误）。
func (w *Watcher) Run(ctx context.Context) error {
	_, err := w.RunReason(ctx)
	return err
}

// RunReason 同 Run，并返回结束原因。
func (w *Watcher) RunReason(ctx context.Context) (Reason, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	w.log.Info("watch", "starting to watch file", map[string]string{
		"path":     w.set.Path,
		"interval": w.set.Interval.String(),
		"notify":   strconv.FormatBool(w.set.Notify),
		"llm":      w.set.LLMName,
	})
	w.term.RunStart(w.set.Path, w.set.Interval, w.set.LLMName)

	wake := make(chan struct{}, 1)
	g, gctx := errgroup.WithContext(ctx)
	if w.set.Notify {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return ReasonFailure, fmt.Errorf("notify init: %w", err)
		}
		target, err := filepath.Abs(w.set.Path)
		if err != nil {
			_ = fw.Close()
			return ReasonFailure, fmt.Errorf("notify path: %w", err)
		}
		if err := fw.Add(filepath.Dir(target)); err != nil {
			_ = fw.Close()
			return ReasonFailure, fmt.Errorf("notify add: %w", err)
		}
		g.Go(func() error {
			defer fw.Close()
			w.forward(gctx, fw, target, wake)
			return nil
		})
	}

	var reason Reason
	g.Go(func() error {
		// 循环结束即撤销通知协程
		defer cancel()
		var err error
		reason, err = w.loop(gctx, wake)
		return err
	})
	err := g.Wait()

	snap := w.metrics.Snapshot()
	snap["reason"] = string(reason)
	snap["cursor"] = strconv.FormatInt(w.cursor, 10)
	w.log.Info("watch", "watcher stopped", snap)
	w.term.RunFinish(string(reason), w.metrics.Op("writer", "write", "success"), time.Since(start))
	return reason, err
}

func (w *Watcher) loop(ctx context.Context, wake <-chan struct{}) (Reason, error) {
	for {
		res, err := w.Pass(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				w.log.Info("watch", "manual interruption received, stopping the watcher", nil)
				return ReasonInterrupt, nil
			}
			return ReasonFailure, err
		}
		if res.Stop {
			w.log.Info("watch", "stop phrase detected, stopping the watcher", nil)
			return ReasonStop, nil
		}

		t := time.NewTimer(w.set.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			w.log.Info("watch", "manual interruption received, stopping the watcher", nil)
			return ReasonInterrupt, nil
		case <-t.C:
		case <-wake:
			t.Stop()
			w.log.Debug("watch", "woken by file event", nil)
		}
	}
}

// forward 将目标文件的写入/创建事件合并为单个唤醒信号。
func (w *Watcher) forward(ctx context.Context, fw *fsnotify.Watcher, target string, wake chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch", "notify", "file notification error", map[string]string{"err": err.Error()})
		}
	}
}
