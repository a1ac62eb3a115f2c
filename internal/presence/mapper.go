package presence

// 大图标默认 key
const (
	DefaultLargeImageKey = "logo"
	DefaultSmallImageKey = "logo_legacy"
)

// Mapper 导航状态 → Presence 的纯映射
type Mapper struct {
	phrases Phrases
	table   map[RootMenu]string
}

// NewMapper 创建映射器
func NewMapper(phrases Phrases) *Mapper {
	return &Mapper{
		phrases: phrases,
		table: map[RootMenu]string{
			RootPreload:       phrases.Preload,
			RootMainMenu:      phrases.MainMenu,
			RootPlayModes:     phrases.PlayModes,
			RootBattlesList:   phrases.BattlesList,
			RootBattle:        phrases.Battle,
			RootSettings:      phrases.Settings,
			RootContainers:    phrases.Containers,
			RootFriends:       phrases.Friends,
			RootMissions:      phrases.Missions,
			RootShop:          phrases.Shop,
			RootGarage:        phrases.Garage,
			RootClan:          phrases.Clan,
			RootCriticalError: phrases.CriticalError,
		},
	}
}

// Map 返回导航状态对应的 Presence；未知顶层菜单返回 nil（不更新）
func (m *Mapper) Map(state NavigationState) *Presence {
	if state.Root == RootAuth {
		return &Presence{Details: m.authPhrase(state.Child)}
	}
	details, ok := m.table[state.Root]
	if !ok {
		return nil
	}
	return &Presence{Details: details}
}

// Auth 下未知或缺省子菜单统一使用 AuthOther
func (m *Mapper) authPhrase(child ChildMenu) string {
	switch child {
	case ChildLogin:
		return m.phrases.AuthLogin
	case ChildRegistration:
		return m.phrases.AuthRegistration
	default:
		return m.phrases.AuthOther
	}
}

// ExtendWithProfile 返回副本，LargeImage 总是被替换为 {logo, 资料文本}
// rank 与 username 任一缺失时文本为空
func ExtendWithProfile(p *Presence, info UserInfo) *Presence {
	out := p.clone()
	out.LargeImage = &PresenceImage{
		Key:  DefaultLargeImageKey,
		Text: ProfileLabel(info),
	}
	return out
}

// ProfileLabel 格式化 "<rank> | [<clan>] <username>"
func ProfileLabel(info UserInfo) string {
	if info.Username == "" || info.Rank == "" {
		return ""
	}
	if info.Clan == "" {
		return info.Rank + " | " + info.Username
	}
	return info.Rank + " | [" + info.Clan + "] " + info.Username
}
