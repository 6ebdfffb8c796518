package codec

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	replyPrefix    = "Replying to: "
	replyDelimiter = "\n---\n"

	excerptLimit = 100
)

// EncodeReply собирает тело ответа: заголовок, строка-разделитель, содержимое
func EncodeReply(attribution, content string) string {
	return replyPrefix + attribution + replyDelimiter + content
}

// Attribution формирует строку цитаты вида `Jane: "Sounds good"`
func Attribution(author, excerpt string) string {
	return fmt.Sprintf(`%s: "%s"`, author, excerpt)
}

// Excerpt - короткая цитата из тела исходного сообщения
func Excerpt(quotedBody string) string {
	b := Decode(quotedBody)
	text := strings.Join(strings.Fields(VisibleText(b)), " ")
	if text == "" {
		if atts := attachmentsOf(b); len(atts) > 0 {
			text = atts[0].Label
		}
	}
	if utf8.RuneCountInString(text) > excerptLimit {
		runes := []rune(text)
		text = string(runes[:excerptLimit]) + "..."
	}
	return text
}

func decodeReply(body string) (replyTo, content string, ok bool) {
	if !strings.HasPrefix(body, replyPrefix) {
		return "", "", false
	}
	rest := body[len(replyPrefix):]
	idx := strings.Index(rest, replyDelimiter)
	if idx < 0 {
		return "", "", false
	}
	replyTo = rest[:idx]
	if replyTo == "" || strings.Contains(replyTo, "\n") {
		return "", "", false
	}
	return replyTo, rest[idx+len(replyDelimiter):], true
}

func attachmentsOf(b Body) []Attachment {
	switch v := b.(type) {
	case Reply:
		return v.Attachments
	case PlainText:
		return v.Attachments
	default:
		return nil
	}
}
