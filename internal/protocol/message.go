// Package protocol 定义 Discord RPC 与宿主通道的消息类型和协议常量
package protocol

// 宿主插件 ↔ presenced 消息类型
const (
	// 宿主 → presenced
	MsgTypeAuth       uint32 = 0x0001 // 认证请求
	MsgTypeMenuChange uint32 = 0x0002 // menuChange 导航事件
	MsgTypeHeartbeat  uint32 = 0x00FF // 心跳

	// presenced → 宿主
	MsgTypeAuthResp      uint32 = 0x1001 // 认证响应
	MsgTypeNotification  uint32 = 0x1002 // 错误弹窗
	MsgTypeSessionStatus uint32 = 0x1003 // Discord 会话状态
	MsgTypeHeartbeatResp uint32 = 0x10FF // 心跳响应
)

// MsgTypeName 返回消息类型名称（用于日志与指标标签）
func MsgTypeName(msgType uint32) string {
	switch msgType {
	case MsgTypeAuth:
		return "auth"
	case MsgTypeMenuChange:
		return "menu_change"
	case MsgTypeHeartbeat:
		return "heartbeat"
	case MsgTypeAuthResp:
		return "auth_resp"
	case MsgTypeNotification:
		return "notification"
	case MsgTypeSessionStatus:
		return "session_status"
	case MsgTypeHeartbeatResp:
		return "heartbeat_resp"
	default:
		return "unknown"
	}
}

// Discord RPC 命令与事件
const (
	CmdDispatch    = "DISPATCH"
	CmdSetActivity = "SET_ACTIVITY"

	EvtReady = "READY"
	EvtError = "ERROR"
)

// RPCVersion Discord RPC 协议版本
const RPCVersion = 1
