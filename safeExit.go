package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var SafeExitInst *SafeExit

func InitSafeExit() {
	SafeExitInst = new(SafeExit)
	go SafeExitInst.ListenSignal()
}

// SafeExit 安全退出, runs registered funcs in reverse order before exiting
type SafeExit struct {
	funcs []func()
	mu    sync.Mutex
	once  sync.Once
}

func (s *SafeExit) Register(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.funcs = append(s.funcs, f)
}

// Run 执行退出函数, at most once
func (s *SafeExit) Run() {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for i := len(s.funcs) - 1; i >= 0; i-- {
			s.funcs[i]()
		}
	})
}

func (s *SafeExit) exit(code int) {
	s.Run()
	os.Exit(code)
}

func (s *SafeExit) ListenSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	for sig := range sigs {
		switch sig {
		case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
			if log != nil {
				log.Warnf("收到系统信号 %s, 正在停止任务, 请稍后", sig)
			}
			s.exit(130)
		}
	}
}
