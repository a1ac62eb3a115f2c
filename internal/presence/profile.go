package presence

import (
	"regexp"
	"strings"
)

// profilePattern 匹配 "<rank> | [<clan>] <username>"，clan 段可选
var profilePattern = regexp.MustCompile(`(?P<rank>.+)\s\|\s(?:\[(?P<clan>.+)\]\s)?(?P<username>.+)`)

var (
	rankGroup     = profilePattern.SubexpIndex("rank")
	clanGroup     = profilePattern.SubexpIndex("clan")
	usernameGroup = profilePattern.SubexpIndex("username")
)

// ProfileFields 一次解析的结果，空串表示该组未捕获
type ProfileFields struct {
	Rank     string
	Clan     string
	Username string
}

// ParseProfileText 解析界面资料文本；不匹配时返回 false
func ParseProfileText(text string) (ProfileFields, bool) {
	m := profilePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ProfileFields{}, false
	}
	return ProfileFields{
		Rank:     m[rankGroup],
		Clan:     m[clanGroup],
		Username: m[usernameGroup],
	}, true
}
