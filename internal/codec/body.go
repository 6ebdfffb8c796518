// Package codec кодирует и разбирает тело сообщения. Одно текстовое поле несет
// три формата: обычный текст, ответ с цитатой и offer-payload. Decode возвращает
// один из вариантов и никогда не падает: все нераспознанное считается PlainText.
package codec

// Body - закрытая сумма типов: PlainText, Reply или Offer
type Body interface {
	isBody()
}

// PlainText - обычное сообщение; Text совпадает с исходным телом
type PlainText struct {
	Text        string
	Attachments []Attachment
}

// Reply - ответ на другое сообщение
type Reply struct {
	ReplyTo     string
	Content     string
	Attachments []Attachment
}

// Offer - сообщение-носитель коммерческого предложения
type Offer struct {
	Payload OfferPayload
}

func (PlainText) isBody() {}
func (Reply) isBody()     {}
func (Offer) isBody()     {}

const (
	KindPlain = "plain"
	KindReply = "reply"
	KindOffer = "offer"
)

// Decode разбирает тело сообщения. Offer проверяется первым: offer никогда не бывает ответом.
func Decode(body string) Body {
	if payload, ok := decodeOffer(body); ok {
		return Offer{Payload: payload}
	}
	if replyTo, content, ok := decodeReply(body); ok {
		return Reply{
			ReplyTo:     replyTo,
			Content:     content,
			Attachments: ParseAttachments(content),
		}
	}
	return PlainText{
		Text:        body,
		Attachments: ParseAttachments(body),
	}
}

// View - JSON-представление разобранного тела для API
type View struct {
	Kind        string        `json:"kind"`
	Text        string        `json:"text,omitempty"`
	ReplyTo     string        `json:"reply_to,omitempty"`
	Offer       *OfferPayload `json:"offer,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

func ViewOf(b Body) View {
	switch v := b.(type) {
	case Offer:
		payload := v.Payload
		return View{Kind: KindOffer, Offer: &payload}
	case Reply:
		return View{Kind: KindReply, Text: v.Content, ReplyTo: v.ReplyTo, Attachments: v.Attachments}
	case PlainText:
		return View{Kind: KindPlain, Text: v.Text, Attachments: v.Attachments}
	default:
		return View{Kind: KindPlain}
	}
}

// VisibleText - текст, который видит пользователь, без строк вложений
func VisibleText(b Body) string {
	switch v := b.(type) {
	case Offer:
		return "Offer: " + v.Payload.Title
	case Reply:
		return StripAttachments(v.Content)
	case PlainText:
		return StripAttachments(v.Text)
	default:
		return ""
	}
}
