// Package presence 实现状态同步核心：导航 → 状态映射、资料解析、Discord 会话管理与事件桥接
package presence

import (
	"context"
	"time"

	"github.com/qiminjie89/presenced/internal/protocol"
)

// RootMenu 顶层菜单
type RootMenu string

const (
	RootPreload       RootMenu = "Preload"
	RootAuth          RootMenu = "Auth"
	RootMainMenu      RootMenu = "MainMenu"
	RootPlayModes     RootMenu = "PlayModes"
	RootBattlesList   RootMenu = "BattlesList"
	RootBattle        RootMenu = "Battle"
	RootSettings      RootMenu = "Settings"
	RootContainers    RootMenu = "Containers"
	RootFriends       RootMenu = "Friends"
	RootMissions      RootMenu = "Missions"
	RootShop          RootMenu = "Shop"
	RootGarage        RootMenu = "Garage"
	RootClan          RootMenu = "Clan"
	RootCriticalError RootMenu = "CriticalError"
)

// RootMenus 全部已知顶层菜单
var RootMenus = []RootMenu{
	RootPreload, RootAuth, RootMainMenu, RootPlayModes, RootBattlesList, RootBattle, RootSettings,
	RootContainers, RootFriends, RootMissions, RootShop, RootGarage, RootClan, RootCriticalError,
}

// Known 是否属于固定枚举
func (r RootMenu) Known() bool {
	for _, known := range RootMenus {
		if r == known {
			return true
		}
	}
	return false
}

// ChildMenu 子菜单，仅在 Auth 下有意义
type ChildMenu string

const (
	ChildNone         ChildMenu = ""
	ChildLogin        ChildMenu = "Login"
	ChildRegistration ChildMenu = "Registration"
)

// NavigationState 导航状态快照
// Friendly 与 ProfileText 为事件发生时的界面值，为空时由 Bridge 回退到 Navigator/ProfileTextProvider
type NavigationState struct {
	Root  RootMenu
	Child ChildMenu

	Friendly    string
	ProfileText string
}

// PresenceImage 图标与悬停文本
type PresenceImage struct {
	Key  string
	Text string
}

// Presence 待发送的状态，零值字段表示缺省
type Presence struct {
	Details    string
	State      string
	StartTime  time.Time
	EndTime    time.Time
	LargeImage *PresenceImage
	SmallImage *PresenceImage
	Instance   bool
}

func (p *Presence) clone() *Presence {
	out := *p
	if p.LargeImage != nil {
		img := *p.LargeImage
		out.LargeImage = &img
	}
	if p.SmallImage != nil {
		img := *p.SmallImage
		out.SmallImage = &img
	}
	return &out
}

// UserInfo 从界面文本提取的用户资料，空串表示未知
type UserInfo struct {
	Username string
	Clan     string
	Rank     string
}

// Merge 只覆盖解析到的字段
func (u *UserInfo) Merge(f ProfileFields) {
	if f.Username != "" {
		u.Username = f.Username
	}
	if f.Clan != "" {
		u.Clan = f.Clan
	}
	if f.Rank != "" {
		u.Rank = f.Rank
	}
}

// Notification 错误弹窗
type Notification struct {
	Title      string
	Message    string
	Duration   time.Duration
	TitleColor string
}

// Notifier 通知能力
type Notifier interface {
	Notify(n Notification)
}

// Navigator 导航事件源
type Navigator interface {
	// Events 返回 menuChange 事件流
	Events() <-chan NavigationState
	// Friendly 返回当前导航的可读描述（仅用于日志）
	Friendly() string
}

// ProfileTextProvider 返回界面上的 "<rank> | [<clan>] <username>" 文本
type ProfileTextProvider interface {
	ProfileText() string
}

// ActivityClient Discord RPC 传输能力
type ActivityClient interface {
	Login(ctx context.Context) (*protocol.User, error)
	SetActivity(ctx context.Context, activity *protocol.Activity) error
}

// ActivitySetter 推送状态（由 Manager 实现）
type ActivitySetter interface {
	SetActivity(ctx context.Context, p *Presence) bool
}
