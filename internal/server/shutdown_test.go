package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/drewdunne/codecritic/internal/config"
	"github.com/drewdunne/codecritic/internal/dispatch"
)

// steps records the order in which shutdown phases happened.
type steps struct {
	mu   sync.Mutex
	list []string
}

func (s *steps) add(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, step)
}

func (s *steps) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.list...)
}

type recordingDispatcher struct {
	fakeDispatcher
	steps *steps
}

func (d recordingDispatcher) Shutdown(ctx context.Context) error {
	d.steps.add("drain")
	return nil
}

func localConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
	}
}

func startServer(t *testing.T, srv *Server) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("Run() failed to start: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server not ready within 5s")
	}
	return cancel, errCh
}

func waitRun(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after shutdown")
		return nil
	}
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	order := &steps{}
	srv := New(localConfig(), Options{Dispatcher: recordingDispatcher{steps: order}})

	cancel, errCh := startServer(t, srv)
	cancel()

	if err := waitRun(t, errCh); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if got := order.get(); !reflect.DeepEqual(got, []string{"drain"}) {
		t.Errorf("shutdown steps = %v, want [drain]", got)
	}
}

func TestRun_StopsOnSignal(t *testing.T) {
	srv := New(localConfig(), Options{})

	cancel, errCh := startServer(t, srv)
	defer cancel()

	syscall.Kill(syscall.Getpid(), syscall.SIGTERM)

	if err := waitRun(t, errCh); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}

func TestRun_FinishesRequestsBeforeDrainingRuns(t *testing.T) {
	order := &steps{}
	srv := New(localConfig(), Options{Dispatcher: recordingDispatcher{steps: order}})

	started := make(chan struct{})
	release := make(chan struct{})
	srv.mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		order.add("request")
		w.Write([]byte("done"))
	})

	cancel, errCh := startServer(t, srv)

	respDone := make(chan struct{})
	go func() {
		defer close(respDone)
		resp, err := http.Get("http://" + srv.Addr() + "/slow")
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-started

	cancel()
	time.Sleep(50 * time.Millisecond)
	if got := order.get(); len(got) != 0 {
		t.Fatalf("steps before the request finished = %v, want none", got)
	}
	close(release)

	if err := waitRun(t, errCh); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	<-respDone

	if got := order.get(); !reflect.DeepEqual(got, []string{"request", "drain"}) {
		t.Errorf("shutdown steps = %v, want [request drain]", got)
	}
}

func TestRun_DrainsRunningReviews(t *testing.T) {
	d := dispatch.New(dispatch.Config{Workers: 1, QueueSize: 1})
	srv := New(localConfig(), Options{Dispatcher: d})

	cancel, errCh := startServer(t, srv)

	started := make(chan struct{})
	var runErr error
	finished := make(chan struct{})
	if err := d.Submit(func(ctx context.Context) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		runErr = ctx.Err()
		close(finished)
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	cancel()
	if err := waitRun(t, errCh); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}

	select {
	case <-finished:
	default:
		t.Fatal("Run() returned before the review run finished")
	}
	if runErr != nil {
		t.Errorf("review run context error = %v, want nil during the grace period", runErr)
	}
}

func TestRun_CancelsReviewsAtDeadline(t *testing.T) {
	cfg := localConfig()
	cfg.Server.ShutdownTimeoutSeconds = 1

	d := dispatch.New(dispatch.Config{Workers: 1, QueueSize: 1})
	srv := New(cfg, Options{Dispatcher: d})

	cancel, errCh := startServer(t, srv)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	d.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})
	<-started

	cancel()
	if err := waitRun(t, errCh); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want deadline exceeded", err)
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Error("review run was not cancelled at the shutdown deadline")
	}
}

func TestRun_ListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer busy.Close()

	cfg := localConfig()
	cfg.Server.Port = busy.Addr().(*net.TCPAddr).Port

	err = New(cfg, Options{}).Run(context.Background())
	if err == nil {
		t.Fatalf("Run() on busy port %d error = nil", cfg.Server.Port)
	}
}

func TestServer_Addr(t *testing.T) {
	srv := New(localConfig(), Options{})

	if addr := srv.Addr(); addr != "" {
		t.Errorf("Addr() before Run = %q, want empty", addr)
	}

	cancel, errCh := startServer(t, srv)

	host, port, err := net.SplitHostPort(srv.Addr())
	if err != nil || host != "127.0.0.1" || port == "0" {
		t.Errorf("Addr() after start = %q, want 127.0.0.1 with a bound port", srv.Addr())
	}

	cancel()
	waitRun(t, errCh)
}
