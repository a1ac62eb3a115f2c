package protocol

// ========== 宿主 → presenced ==========

// AuthRequest 认证请求
type AuthRequest struct {
	Token  string `msgpack:"token"`
	HostID string `msgpack:"host_id"`
}

// MenuChange 导航变化事件
// ProfileText 为进入主菜单时界面上的 "<rank> | [<clan>] <username>" 文本
type MenuChange struct {
	Root        string `msgpack:"root"`
	Child       string `msgpack:"child,omitempty"`
	Friendly    string `msgpack:"friendly,omitempty"`
	ProfileText string `msgpack:"profile_text,omitempty"`
}

// ========== presenced → 宿主 ==========

// AuthResponse 认证响应
type AuthResponse struct {
	Success bool   `msgpack:"success"`
	HostID  string `msgpack:"host_id,omitempty"`
	Code    int    `msgpack:"code"`
	Message string `msgpack:"message,omitempty"`
}

// Notification 通知弹窗
type Notification struct {
	Title      string `msgpack:"title"`
	Message    string `msgpack:"message"`
	DurationMs int64  `msgpack:"duration_ms"`
	TitleColor string `msgpack:"title_color"`
}

// SessionStatus Discord 会话状态
type SessionStatus struct {
	State         string `msgpack:"state"`
	Username      string `msgpack:"username,omitempty"`
	Discriminator string `msgpack:"discriminator,omitempty"`
}
