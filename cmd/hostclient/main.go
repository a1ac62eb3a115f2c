// Package main 提供宿主通道交互式模拟客户端，用于在没有游戏插件时驱动 presenced
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/qiminjie89/presenced/internal/protocol"
)

// 配置
var (
	serverAddr = pflag.String("addr", "ws://127.0.0.1:29450/ws", "presenced host channel address")
	hostID     = pflag.String("host", "hostclient", "Host ID")
	token      = pflag.String("token", "dev_hostclient", "Auth token (dev_xxx for dev mode)")
	heartbeat  = pflag.Duration("heartbeat", 30*time.Second, "Heartbeat interval, 0 to disable")
	verbose    = pflag.BoolP("verbose", "v", false, "Verbose output")
)

var seqCounter uint64

// client 串行化写入
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex

	// 最近一次 profile 命令设置的文本，随下一次 menu 一并发送
	profileText string
}

func main() {
	pflag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Printf("Host channel client")
	log.Printf("  Server: %s", *serverAddr)
	log.Printf("  HostID: %s", *hostID)

	conn, _, err := websocket.DefaultDialer.Dial(*serverAddr, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn}
	if err := c.authenticate(); err != nil {
		log.Fatalf("Authentication failed: %v", err)
	}

	go c.receiveLoop()

	stop := make(chan struct{})
	if *heartbeat > 0 {
		go c.heartbeatLoop(stop)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		conn.Close()
		os.Exit(0)
	}()

	log.Printf("Ready. Type 'help' for commands.")
	c.commandLoop()
	close(stop)
}

// authenticate 发送认证请求并等待响应
func (c *client) authenticate() error {
	if err := c.send(protocol.MsgTypeAuth, &protocol.AuthRequest{Token: *token, HostID: *hostID}); err != nil {
		return fmt.Errorf("send auth frame: %w", err)
	}

	frame, err := c.recv()
	if err != nil {
		return fmt.Errorf("recv auth response: %w", err)
	}
	if frame.MsgType != protocol.MsgTypeAuthResp {
		return fmt.Errorf("unexpected response type: 0x%04X", frame.MsgType)
	}

	var resp protocol.AuthResponse
	if err := protocol.Decode(frame.Payload, &resp); err != nil {
		return fmt.Errorf("unmarshal auth response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("auth failed: code=%d, message=%s", resp.Code, resp.Message)
	}

	log.Printf("Authenticated as %s", resp.HostID)
	return nil
}

func (c *client) commandLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		parts := strings.Fields(line)
		if len(parts) == 0 {
			fmt.Print("> ")
			continue
		}

		switch parts[0] {
		case "help":
			printHelp()

		case "menu":
			// menu <root> [child]
			if len(parts) < 2 {
				log.Printf("Usage: menu <root> [child]")
				break
			}
			mc := &protocol.MenuChange{Root: parts[1], Friendly: strings.Join(parts[1:], " / ")}
			if len(parts) > 2 {
				mc.Child = parts[2]
			}
			mc.ProfileText = c.profileText
			if err := c.send(protocol.MsgTypeMenuChange, mc); err != nil {
				log.Printf("Send failed: %v", err)
			}

		case "profile":
			// profile <rank> | [<clan>] <username>
			c.profileText = strings.TrimSpace(strings.TrimPrefix(line, "profile"))
			log.Printf("Profile text set: %q", c.profileText)

		case "hb", "heartbeat":
			c.sendHeartbeat()

		case "quit", "exit":
			return

		default:
			log.Printf("Unknown command: %s", parts[0])
		}
		fmt.Print("> ")
	}
}

func printHelp() {
	fmt.Println(`Commands:
  menu <root> [child]   send a menu change (e.g. "menu Auth Login", "menu Battle")
  profile <text>        set profile text sent with the next menu change
                        (e.g. "profile General | [ABC] Neo")
  hb                    send a heartbeat
  quit                  exit`)
}

// heartbeatLoop 心跳循环
func (c *client) heartbeatLoop(stop chan struct{}) {
	ticker := time.NewTicker(*heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.sendHeartbeat()
		}
	}
}

func (c *client) sendHeartbeat() {
	if err := c.send(protocol.MsgTypeHeartbeat, struct{}{}); err != nil {
		log.Printf("Failed to send heartbeat: %v", err)
		return
	}
	if *verbose {
		log.Printf("Heartbeat sent")
	}
}

// receiveLoop 打印下行消息
func (c *client) receiveLoop() {
	for {
		frame, err := c.recv()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Connection closed normally")
			} else {
				log.Printf("Receive error: %v", err)
			}
			os.Exit(1)
		}

		switch frame.MsgType {
		case protocol.MsgTypeNotification:
			var n protocol.Notification
			if err := protocol.Decode(frame.Payload, &n); err != nil {
				log.Printf("Failed to unmarshal notification: %v", err)
				continue
			}
			log.Printf("NOTIFICATION [%s] %s: %s (%dms)", n.TitleColor, n.Title, n.Message, n.DurationMs)

		case protocol.MsgTypeSessionStatus:
			var st protocol.SessionStatus
			if err := protocol.Decode(frame.Payload, &st); err != nil {
				log.Printf("Failed to unmarshal session status: %v", err)
				continue
			}
			if st.Username != "" {
				log.Printf("Discord session: %s (%s#%s)", st.State, st.Username, st.Discriminator)
			} else {
				log.Printf("Discord session: %s", st.State)
			}

		case protocol.MsgTypeHeartbeatResp:
			if *verbose {
				log.Printf("Heartbeat response received (seq=%d)", frame.Seq)
			}

		default:
			log.Printf("Received %s (seq=%d)", protocol.MsgTypeName(frame.MsgType), frame.Seq)
		}
	}
}

func (c *client) send(msgType uint32, v interface{}) error {
	frame, err := protocol.NewFrame(msgType, atomic.AddUint64(&seqCounter, 1), v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeFrame(frame))
}

func (c *client) recv() (*protocol.Frame, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.DecodeFrame(data)
}
