package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/qiminjie89/presenced/internal/protocol"
)

// pipeConn 让 net.Conn 满足 transport.Conn
type pipeConn struct {
	net.Conn
}

func (p pipeConn) RemoteAddr() string { return "pipe" }

// fakeDiscord 在 net.Pipe 另一端模拟 Discord 客户端
type fakeDiscord struct {
	t    *testing.T
	conn net.Conn

	// onCommand 返回 nil 表示不响应
	onCommand func(cmd protocol.Command) *protocol.Response

	mu       sync.Mutex
	frames   []*protocol.IPCFrame
	commands []protocol.Command
}

func (f *fakeDiscord) send(op protocol.Opcode, v interface{}) {
	frame, err := protocol.NewIPCFrame(op, v)
	if err != nil {
		f.t.Errorf("encode: %v", err)
		return
	}
	protocol.WriteIPCFrame(f.conn, frame)
}

func (f *fakeDiscord) sendRaw(op protocol.Opcode, payload []byte) {
	protocol.WriteIPCFrame(f.conn, &protocol.IPCFrame{Op: op, Payload: payload})
}

func (f *fakeDiscord) run(ready func(hs protocol.Handshake)) {
	for {
		frame, err := protocol.ReadIPCFrame(f.conn)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.frames = append(f.frames, frame)
		f.mu.Unlock()

		switch frame.Op {
		case protocol.OpHandshake:
			var hs protocol.Handshake
			json.Unmarshal(frame.Payload, &hs)
			ready(hs)
		case protocol.OpFrame:
			var cmd protocol.Command
			json.Unmarshal(frame.Payload, &cmd)
			f.mu.Lock()
			f.commands = append(f.commands, cmd)
			f.mu.Unlock()
			if f.onCommand != nil {
				if resp := f.onCommand(cmd); resp != nil {
					go f.send(protocol.OpFrame, resp)
				}
			}
		}
	}
}

func (f *fakeDiscord) Frames() []*protocol.IPCFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*protocol.IPCFrame(nil), f.frames...)
}

func (f *fakeDiscord) Commands() []protocol.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Command(nil), f.commands...)
}

func sendReady(f *fakeDiscord) func(protocol.Handshake) {
	return func(hs protocol.Handshake) {
		go f.send(protocol.OpFrame, map[string]interface{}{
			"cmd": protocol.CmdDispatch,
			"evt": protocol.EvtReady,
			"data": protocol.ReadyData{
				V:    1,
				User: protocol.User{ID: "1", Username: "Neo", Discriminator: "0001"},
			},
		})
	}
}

func ackActivity(cmd protocol.Command) *protocol.Response {
	return &protocol.Response{Cmd: cmd.Cmd, Nonce: cmd.Nonce, Data: json.RawMessage(`{}`)}
}

func newTestClient(t *testing.T, ready func(*fakeDiscord) func(protocol.Handshake), onCommand func(protocol.Command) *protocol.Response) (*Client, *fakeDiscord) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	fake := &fakeDiscord{t: t, conn: serverSide, onCommand: onCommand}
	go fake.run(ready(fake))

	c := newClient(Options{ClientID: "707949124724457502"}, func(context.Context, string) (framer, error) {
		return &ipcFramer{conn: pipeConn{clientSide}}, nil
	})
	t.Cleanup(func() {
		c.Close()
		serverSide.Close()
	})
	return c, fake
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoginHandshake(t *testing.T) {
	c, fake := newTestClient(t, sendReady, nil)

	user, err := c.Login(testContext(t))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Tag() != "Neo#0001" {
		t.Errorf("user = %s", user.Tag())
	}

	frames := fake.Frames()
	if len(frames) != 1 || frames[0].Op != protocol.OpHandshake {
		t.Fatalf("frames = %+v", frames)
	}
	var hs protocol.Handshake
	json.Unmarshal(frames[0].Payload, &hs)
	if hs.V != 1 || hs.ClientID != "707949124724457502" {
		t.Errorf("handshake = %+v", hs)
	}

	if u, ok := c.User(); !ok || u.Username != "Neo" {
		t.Errorf("User() = %+v, %v", u, ok)
	}

	// 已登录时再次 Login 直接返回
	again, err := c.Login(testContext(t))
	if err != nil || again.ID != "1" {
		t.Fatalf("second Login = %+v, %v", again, err)
	}
	if n := len(fake.Frames()); n != 1 {
		t.Errorf("second Login sent %d frames", n)
	}
}

func TestLoginRejectedByCloseFrame(t *testing.T) {
	c, _ := newTestClient(t, func(f *fakeDiscord) func(protocol.Handshake) {
		return func(protocol.Handshake) {
			go f.send(protocol.OpClose, protocol.ErrorData{Code: protocol.CloseInvalidClientID, Message: "Invalid Client ID"})
		}
	}, nil)

	_, err := c.Login(testContext(t))
	var rpcErr *protocol.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Login = %v, want *protocol.Error", err)
	}
	if rpcErr.Code != protocol.CloseInvalidClientID || rpcErr.Message != "Invalid Client ID" {
		t.Errorf("error = %+v", rpcErr)
	}
	if _, ok := c.User(); ok {
		t.Error("user should not be set after failed login")
	}
}

func TestLoginDialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	c := newClient(Options{ClientID: "x"}, func(context.Context, string) (framer, error) {
		return nil, dialErr
	})

	_, err := c.Login(context.Background())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) || connErr.Op != "dial" {
		t.Fatalf("Login = %v, want dial ConnectionError", err)
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("dial error should be wrapped: %v", err)
	}
	if connErr.Kind() != "ConnectionError" {
		t.Errorf("kind = %q", connErr.Kind())
	}
}

func TestLoginContextCanceled(t *testing.T) {
	c, _ := newTestClient(t, func(*fakeDiscord) func(protocol.Handshake) {
		return func(protocol.Handshake) {}
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Login(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Login = %v, want deadline exceeded", err)
	}
}

func TestSetActivityBeforeLogin(t *testing.T) {
	c := newClient(Options{}, func(context.Context, string) (framer, error) {
		t.Fatal("dial should not be called")
		return nil, nil
	})
	if err := c.SetActivity(context.Background(), &protocol.Activity{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("SetActivity = %v, want ErrNotConnected", err)
	}
}

func TestSetActivity(t *testing.T) {
	c, fake := newTestClient(t, sendReady, ackActivity)
	ctx := testContext(t)
	if _, err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	activity := &protocol.Activity{
		Details: "В битве",
		Assets:  &protocol.Assets{LargeImage: "logo", SmallImage: "logo_legacy", SmallText: "Tanki Online"},
	}
	if err := c.SetActivity(ctx, activity); err != nil {
		t.Fatalf("SetActivity: %v", err)
	}

	cmds := fake.Commands()
	if len(cmds) != 1 {
		t.Fatalf("got %d commands", len(cmds))
	}
	if cmds[0].Cmd != protocol.CmdSetActivity || cmds[0].Nonce == "" {
		t.Errorf("command = %+v", cmds[0])
	}

	raw, _ := json.Marshal(cmds[0].Args)
	var args protocol.SetActivityArgs
	json.Unmarshal(raw, &args)
	if args.PID == 0 || args.Activity == nil || args.Activity.Details != "В битве" {
		t.Errorf("args = %s", raw)
	}
}

func TestSetActivityErrorResponse(t *testing.T) {
	c, _ := newTestClient(t, sendReady, func(cmd protocol.Command) *protocol.Response {
		return &protocol.Response{
			Cmd:   cmd.Cmd,
			Evt:   protocol.EvtError,
			Nonce: cmd.Nonce,
			Data:  json.RawMessage(`{"code":4000,"message":"child \"activity\" fails"}`),
		}
	})
	ctx := testContext(t)
	if _, err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	err := c.SetActivity(ctx, &protocol.Activity{})
	var rpcErr *protocol.Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != protocol.RPCErrInvalidPayload {
		t.Fatalf("SetActivity = %v, want RPC error 4000", err)
	}

	// 单次失败不影响会话
	if _, ok := c.User(); !ok {
		t.Error("session should survive an error response")
	}
}

func TestConcurrentSetActivityRoutesByNonce(t *testing.T) {
	c, _ := newTestClient(t, sendReady, ackActivity)
	ctx := testContext(t)
	if _, err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.SetActivity(ctx, &protocol.Activity{Details: "x"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("SetActivity: %v", err)
		}
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	c, fake := newTestClient(t, sendReady, nil)
	if _, err := c.Login(testContext(t)); err != nil {
		t.Fatalf("Login: %v", err)
	}

	go fake.sendRaw(protocol.OpPing, []byte(`{"t":1}`))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, f := range fake.Frames() {
			if f.Op == protocol.OpPong {
				if string(f.Payload) != `{"t":1}` {
					t.Fatalf("pong payload = %s", f.Payload)
				}
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no pong received")
}

func TestSetActivityAfterRemoteClose(t *testing.T) {
	c, fake := newTestClient(t, sendReady, nil)
	ctx := testContext(t)
	if _, err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	fake.conn.Close()

	deadline := time.Now().Add(time.Second)
	for {
		err := c.SetActivity(ctx, &protocol.Activity{})
		if errors.Is(err, ErrClosed) {
			var connErr *ConnectionError
			if !errors.As(err, &connErr) {
				t.Errorf("close cause should be a ConnectionError: %v", err)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("SetActivity = %v, want ErrClosed", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
