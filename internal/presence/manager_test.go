package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/qiminjie89/presenced/internal/protocol"
	"github.com/qiminjie89/presenced/internal/rpc"
	"github.com/qiminjie89/presenced/pkg/metrics"
)

type fakeClient struct {
	mu         sync.Mutex
	loginErr   error
	setErrs    []error // 按调用顺序返回，耗尽后返回 nil
	logins     int
	activities []*protocol.Activity
}

func (f *fakeClient) Login(context.Context) (*protocol.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &protocol.User{ID: "42", Username: "Neo", Discriminator: "0001"}, nil
}

func (f *fakeClient) SetActivity(_ context.Context, a *protocol.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, a)
	if len(f.setErrs) == 0 {
		return nil
	}
	err := f.setErrs[0]
	f.setErrs = f.setErrs[1:]
	return err
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.activities)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (f *fakeNotifier) Notify(n Notification) {
	f.mu.Lock()
	f.sent = append(f.sent, n)
	f.mu.Unlock()
}

func (f *fakeNotifier) all() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}

type fakeRegistrar struct {
	ids []string
	err error
}

func (f *fakeRegistrar) Register(id string) error {
	f.ids = append(f.ids, id)
	return f.err
}

func newTestManager(client *fakeClient) (*Manager, *fakeNotifier) {
	n := &fakeNotifier{}
	m := NewManager(client, n, NoopRegistrar{}, ManagerOptions{
		ClientID: "707949124724457502",
		Phrases:  PhrasesRU,
	})
	return m, n
}

func TestNewManagerRegistersClientID(t *testing.T) {
	reg := &fakeRegistrar{err: errors.New("read-only fs")}
	m := NewManager(&fakeClient{}, &fakeNotifier{}, reg, ManagerOptions{ClientID: "707949124724457502"})

	if len(reg.ids) != 1 || reg.ids[0] != "707949124724457502" {
		t.Errorf("registered = %v", reg.ids)
	}
	if m.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", m.State())
	}
}

func TestSetActivityWhileDisconnected(t *testing.T) {
	client := &fakeClient{}
	m, n := newTestManager(client)
	skipped := testutil.ToFloat64(metrics.Pushes.WithLabelValues("skipped"))

	if m.SetActivity(context.Background(), &Presence{Details: "В битве"}) {
		t.Fatal("SetActivity returned true while disconnected")
	}
	if client.calls() != 0 {
		t.Errorf("client called %d times", client.calls())
	}
	if len(n.all()) != 0 {
		t.Errorf("unexpected notifications: %+v", n.all())
	}
	if got := testutil.ToFloat64(metrics.Pushes.WithLabelValues("skipped")) - skipped; got != 1 {
		t.Errorf("skipped pushes = %v, want 1", got)
	}
}

func TestLogin(t *testing.T) {
	m, n := newTestManager(&fakeClient{})

	if err := m.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if m.State() != StateConnected {
		t.Errorf("state = %s", m.State())
	}
	user, ok := m.User()
	if !ok || user.Tag() != "Neo#0001" {
		t.Errorf("User() = %+v, %v", user, ok)
	}
	if len(n.all()) != 0 {
		t.Errorf("unexpected notifications: %+v", n.all())
	}
	if got := testutil.ToFloat64(metrics.SessionState); got != float64(StateConnected) {
		t.Errorf("session gauge = %v", got)
	}
}

func TestLoginWhileConnectedKeepsSession(t *testing.T) {
	client := &fakeClient{}
	m, n := newTestManager(client)

	if err := m.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	client.mu.Lock()
	client.loginErr = errors.New("dial: connection refused")
	client.mu.Unlock()

	if err := m.Login(context.Background()); err != nil {
		t.Fatalf("second Login = %v, want nil", err)
	}
	if m.State() != StateConnected {
		t.Errorf("state = %s, want connected", m.State())
	}
	if _, ok := m.User(); !ok {
		t.Error("user lost after second Login")
	}
	if len(n.all()) != 0 {
		t.Errorf("unexpected notifications: %+v", n.all())
	}
	client.mu.Lock()
	logins := client.logins
	client.mu.Unlock()
	if logins != 1 {
		t.Errorf("logins = %d, want 1", logins)
	}
}

func TestLoginFailureNotifies(t *testing.T) {
	loginErr := protocol.NewError(protocol.ErrorData{Code: protocol.CloseInvalidClientID, Message: "Invalid Client ID"})
	client := &fakeClient{loginErr: loginErr}
	m, n := newTestManager(client)

	if err := m.Login(context.Background()); !errors.Is(err, loginErr) {
		t.Fatalf("Login = %v, want %v", err, loginErr)
	}
	if m.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", m.State())
	}
	if _, ok := m.User(); ok {
		t.Error("User() should report not connected")
	}

	sent := n.all()
	if len(sent) != 1 {
		t.Fatalf("got %d notifications", len(sent))
	}
	want := Notification{
		Title:      "Ошибка Discord Rich Presence",
		Message:    "RPCError: Invalid Client ID",
		Duration:   10 * time.Second,
		TitleColor: "#f51212",
	}
	if sent[0] != want {
		t.Errorf("notification = %+v\nwant %+v", sent[0], want)
	}

	// 登录失败后推送被跳过
	if m.SetActivity(context.Background(), &Presence{Details: "x"}) || client.calls() != 0 {
		t.Error("push after failed login should be skipped")
	}
}

func TestSetActivityFailureKeepsSession(t *testing.T) {
	client := &fakeClient{setErrs: []error{&rpc.ConnectionError{Op: "write", Err: errors.New("broken pipe")}}}
	m, n := newTestManager(client)
	if err := m.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if m.SetActivity(context.Background(), &Presence{Details: "В битве"}) {
		t.Fatal("SetActivity returned true on failure")
	}
	if m.State() != StateConnected {
		t.Errorf("state = %s, want connected", m.State())
	}
	sent := n.all()
	if len(sent) != 1 {
		t.Fatalf("got %d notifications, want 1", len(sent))
	}
	if sent[0].Message != "ConnectionError: write: broken pipe" {
		t.Errorf("message = %q", sent[0].Message)
	}

	// 下一次推送照常进行
	if !m.SetActivity(context.Background(), &Presence{Details: "В гараже"}) {
		t.Error("second SetActivity failed")
	}
	if client.calls() != 2 {
		t.Errorf("client calls = %d, want 2", client.calls())
	}
	if len(n.all()) != 1 {
		t.Errorf("notifications = %d, want 1", len(n.all()))
	}
}

func TestBuildActivity(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)

	a := BuildActivity(&Presence{Details: "В битве"}, "Tanki Online")
	if a.Details != "В битве" || a.Timestamps != nil {
		t.Errorf("activity = %+v", a)
	}
	if *a.Assets != (protocol.Assets{LargeImage: "logo", SmallImage: "logo_legacy", SmallText: "Tanki Online"}) {
		t.Errorf("default assets = %+v", *a.Assets)
	}

	a = BuildActivity(&Presence{
		Details:    "В гараже",
		State:      "Hornet M2",
		StartTime:  start,
		LargeImage: &PresenceImage{Key: "garage", Text: "General | Neo"},
		SmallImage: &PresenceImage{Text: "v2"},
		Instance:   true,
	}, "Tanki Online")
	if a.State != "Hornet M2" || !a.Instance {
		t.Errorf("activity = %+v", a)
	}
	if a.Timestamps == nil || a.Timestamps.Start != start.UnixMilli() || a.Timestamps.End != 0 {
		t.Errorf("timestamps = %+v", a.Timestamps)
	}
	want := protocol.Assets{LargeImage: "garage", LargeText: "General | Neo", SmallImage: "logo_legacy", SmallText: "v2"}
	if *a.Assets != want {
		t.Errorf("assets = %+v\nwant %+v", *a.Assets, want)
	}
}

func TestErrorKind(t *testing.T) {
	rpcErr := protocol.NewError(protocol.ErrorData{Code: 4000, Message: "bad"})
	tests := []struct {
		err  error
		want string
	}{
		{rpcErr, "RPCError"},
		{fmt.Errorf("%w: %w", rpc.ErrClosed, rpcErr), "RPCError"},
		{&rpc.ConnectionError{Op: "dial", Err: errors.New("refused")}, "ConnectionError"},
		{errors.New("boom"), "Error"},
		{context.DeadlineExceeded, "Error"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
