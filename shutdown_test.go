package main

import (
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestShutdownOnSignalCallsShutdown(t *testing.T) {
	signals := make(chan os.Signal, 1)
	called := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		shutdownOnSignal(signals, make(chan struct{}), func() error {
			close(called)
			return nil
		}, quietLogger())
		close(finished)
	}()

	signals <- syscall.SIGTERM
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatalf("收到信号后应调用 shutdown")
	}
	<-finished
}

func TestShutdownOnSignalExitsWhenDone(t *testing.T) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		shutdownOnSignal(make(chan os.Signal), done, func() error {
			t.Errorf("服务已退出时不应调用 shutdown")
			return nil
		}, quietLogger())
		close(finished)
	}()

	close(done)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("done 关闭后信号协程应退出")
	}
}
