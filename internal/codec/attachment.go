package codec

import (
	"regexp"
	"strings"
)

const (
	LabelAttachment = "Attachment"
	LabelVoiceNote  = "Voice note"
)

var attachmentLine = regexp.MustCompile(`^(Attachment|Voice note):\s*(https?://\S+)`)

// Attachment - ссылка на файл, закодированная строкой `<Label>: <url>` в теле сообщения
type Attachment struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

func (a Attachment) Line() string {
	return a.Label + ": " + a.URL
}

// Valid - строка вложения разбирается обратно в тот же label и url
func (a Attachment) Valid() bool {
	m := attachmentLine.FindStringSubmatch(a.Line())
	return m != nil && m[1] == a.Label && m[2] == a.URL
}

// ParseAttachments находит строки вложений в любом месте текста
func ParseAttachments(text string) []Attachment {
	var atts []Attachment
	for _, line := range strings.Split(text, "\n") {
		m := attachmentLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		atts = append(atts, Attachment{Label: m[1], URL: m[2]})
	}
	return atts
}

// StripAttachments удаляет строки вложений из текста
func StripAttachments(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if attachmentLine.MatchString(strings.TrimRight(line, "\r")) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Compose добавляет строки вложений после текста через пустую строку
func Compose(text string, atts []Attachment) string {
	text = strings.TrimSpace(text)
	if len(atts) == 0 {
		return text
	}
	lines := make([]string, 0, len(atts))
	for _, a := range atts {
		lines = append(lines, a.Line())
	}
	if text == "" {
		return strings.Join(lines, "\n")
	}
	return text + "\n\n" + strings.Join(lines, "\n")
}
