package presence

import (
	"golang.org/x/text/language"
)

// Phrases 固定文案表
type Phrases struct {
	Preload          string
	AuthLogin        string
	AuthRegistration string
	AuthOther        string
	MainMenu         string
	PlayModes        string
	BattlesList      string
	Battle           string
	Settings         string
	Containers       string
	Friends          string
	Missions         string
	Shop             string
	Garage           string
	Clan             string
	CriticalError    string

	ErrorTitle  string
	ProductName string
}

// PhrasesRU 俄语文案
var PhrasesRU = Phrases{
	Preload:          "Загрузка...",
	AuthLogin:        "Авторизация",
	AuthRegistration: "Регистрация",
	AuthOther:        "Вход в игру",
	MainMenu:         "В главном меню",
	PlayModes:        "В списке режимов",
	BattlesList:      "В списке битв",
	Battle:           "В битве",
	Settings:         "В настройках",
	Containers:       "Открывает контейнеры",
	Friends:          "В списке друзей",
	Missions:         "В списке заданий",
	Shop:             "В магазине",
	Garage:           "В гараже",
	Clan:             "В информации о клане",
	CriticalError:    "Критическая ошибка",

	ErrorTitle:  "Ошибка Discord Rich Presence",
	ProductName: "Tanki Online",
}

// PhrasesEN 英语文案
var PhrasesEN = Phrases{
	Preload:          "Loading...",
	AuthLogin:        "Logging in",
	AuthRegistration: "Registering",
	AuthOther:        "Authenticating",
	MainMenu:         "In main menu",
	PlayModes:        "Choosing a game mode",
	BattlesList:      "Browsing battles",
	Battle:           "In battle",
	Settings:         "In settings",
	Containers:       "Opening containers",
	Friends:          "In friends list",
	Missions:         "Checking missions",
	Shop:             "In shop",
	Garage:           "In garage",
	Clan:             "Viewing clan info",
	CriticalError:    "Critical error",

	ErrorTitle:  "Discord Rich Presence error",
	ProductName: "Tanki Online",
}

var (
	supportedTags = []language.Tag{language.Russian, language.English}
	tagMatcher    = language.NewMatcher(supportedTags)
)

// PhrasesFor 按 locale 选择文案表，无法识别时使用俄语
func PhrasesFor(locale string) Phrases {
	tag, err := language.Parse(locale)
	if err != nil {
		return PhrasesRU
	}
	_, idx, conf := tagMatcher.Match(tag)
	if conf == language.No {
		return PhrasesRU
	}
	if supportedTags[idx] == language.English {
		return PhrasesEN
	}
	return PhrasesRU
}
