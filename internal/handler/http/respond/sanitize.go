package respond

import (
	"regexp"
)

var (
	// GitHub トークン (classic / fine-grained)
	githubTokenPattern = regexp.MustCompile(`\b(ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{20,}|\bgithub_pat_[A-Za-z0-9_]{20,}`)

	// Authorization ヘッダ
	bearerPattern = regexp.MustCompile(`(?i)\b(bearer) [A-Za-z0-9\-._~+/]+=*`)

	// フォーム・クエリ中の秘密値 (password=..., lgtoken=..., ?token=...)
	secretParamPattern = regexp.MustCompile(`(?i)\b(password|pass|lgpassword|lgtoken|authenticity_token|access_token|token)=[^&\s"']+`)

	// URL に埋め込まれた認証情報
	userinfoPattern = regexp.MustCompile(`://([^:/\s]+):([^@/\s]+)@`)
)

// SanitizeError は機密情報をマスクしたエラーメッセージを返す
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString masks credentials in msg.
func SanitizeString(msg string) string {
	msg = githubTokenPattern.ReplaceAllString(msg, "gh_****")
	msg = bearerPattern.ReplaceAllString(msg, "$1 ****")
	msg = secretParamPattern.ReplaceAllString(msg, "$1=****")
	msg = userinfoPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
