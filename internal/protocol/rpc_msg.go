package protocol

import "encoding/json"

// Handshake IPC 握手
type Handshake struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}

// Command RPC 命令
type Command struct {
	Cmd   string      `json:"cmd"`
	Args  interface{} `json:"args,omitempty"`
	Evt   string      `json:"evt,omitempty"`
	Nonce string      `json:"nonce,omitempty"`
}

// Response RPC 响应 / 事件
type Response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
}

// User Discord 用户
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar,omitempty"`
}

// Tag 返回 username#discriminator
func (u User) Tag() string {
	return u.Username + "#" + u.Discriminator
}

// ReadyData READY 事件数据
type ReadyData struct {
	V    int  `json:"v"`
	User User `json:"user"`
}

// ErrorData ERROR 事件 / CLOSE 帧数据
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SetActivityArgs SET_ACTIVITY 参数
type SetActivityArgs struct {
	PID      int       `json:"pid"`
	Activity *Activity `json:"activity,omitempty"`
}

// Activity 发送给 Discord 的活动
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
	Instance   bool        `json:"instance"`
}

// Timestamps 活动起止时间（毫秒时间戳）
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Assets 活动图片与悬停文本
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}
