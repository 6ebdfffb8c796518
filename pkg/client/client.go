// Package client - Go SDK для API переписки: REST-вызовы, realtime-сессия
// и запись голосовых сообщений.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"agency_messaging/internal/codec"
	"agency_messaging/internal/domain"
	apperrors "agency_messaging/pkg/errors"
)

// Client обращается к REST API от имени одного пользователя
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New создает клиент. baseURL - адрес сервера без /api/v1, token - access-токен
// внешнего сервиса учетных записей.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message - сообщение вместе с разобранным телом
type Message struct {
	domain.Message
	View codec.View `json:"view"`
}

type SendRequest struct {
	Text        string             `json:"text"`
	ReplyToID   *uuid.UUID         `json:"reply_to_id,omitempty"`
	Attachments []codec.Attachment `json:"attachments,omitempty"`
}

type OfferRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ServiceID    *uuid.UUID `json:"service_id,omitempty"`
	ServiceTitle string     `json:"service_title,omitempty"`
	Price        string     `json:"price"`
	DeliveryDate string     `json:"delivery_date"`
	Revisions    int        `json:"revisions"`
	Deliverables string     `json:"deliverables"`
}

type OfferResult struct {
	Offer       *domain.Offer `json:"offer"`
	CheckoutURL string        `json:"checkout_url,omitempty"`
}

type UploadResult struct {
	Name       string            `json:"name"`
	Attachment *codec.Attachment `json:"attachment,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// File - файл для загрузки вложением
type File struct {
	Name        string
	ContentType string
	Data        io.Reader
}

type Presence struct {
	Entries     []domain.PresenceEntry `json:"entries"`
	OtherOnline bool                   `json:"other_online"`
}

func (c *Client) Conversations(ctx context.Context, query string) ([]domain.ConversationSummary, error) {
	path := "/api/v1/conversations"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var resp struct {
		Conversations []domain.ConversationSummary `json:"conversations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (c *Client) Thread(ctx context.Context, clientID uuid.UUID) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, conversationPath(clientID, "messages"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) Send(ctx context.Context, clientID uuid.UUID, req SendRequest) (*Message, error) {
	var msg Message
	if err := c.doJSON(ctx, http.MethodPost, conversationPath(clientID, "messages"), req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) SetStatus(ctx context.Context, clientID, messageID uuid.UUID, status string) (*domain.Message, error) {
	var msg domain.Message
	path := conversationPath(clientID, "messages/"+messageID.String()+"/status")
	if err := c.doJSON(ctx, http.MethodPatch, path, map[string]string{"status": status}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) Presence(ctx context.Context, clientID uuid.UUID) (*Presence, error) {
	var p Presence
	if err := c.doJSON(ctx, http.MethodGet, conversationPath(clientID, "presence"), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UploadAttachments загружает файлы одним запросом. Результат содержит итог по каждому
// файлу; ошибка возвращается, только если не загрузился ни один.
func (c *Client) UploadAttachments(ctx context.Context, clientID uuid.UUID, files []File) ([]UploadResult, error) {
	body, contentType, err := multipartBody("files", files)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []UploadResult `json:"results"`
	}
	err = c.do(ctx, http.MethodPost, conversationPath(clientID, "attachments"), body, contentType, &resp)
	if err != nil && len(resp.Results) == 0 {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) UploadVoiceNote(ctx context.Context, clientID uuid.UUID, rec Recording) (*codec.Attachment, error) {
	body, contentType, err := multipartBody("file", []File{{
		Name:        "voice-note",
		ContentType: rec.ContentType,
		Data:        bytes.NewReader(rec.Data),
	}})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Attachment *codec.Attachment `json:"attachment"`
	}
	if err := c.do(ctx, http.MethodPost, conversationPath(clientID, "voice-notes"), body, contentType, &resp); err != nil {
		return nil, err
	}
	return resp.Attachment, nil
}

func (c *Client) CreateOffer(ctx context.Context, clientID uuid.UUID, req OfferRequest) (*domain.Offer, error) {
	var resp struct {
		Offer *domain.Offer `json:"offer"`
	}
	if err := c.doJSON(ctx, http.MethodPost, conversationPath(clientID, "offers"), req, &resp); err != nil {
		return nil, err
	}
	return resp.Offer, nil
}

// Offers возвращает актуальные статусы предложений по ID
func (c *Client) Offers(ctx context.Context, ids ...uuid.UUID) ([]domain.Offer, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	var resp struct {
		Offers []domain.Offer `json:"offers"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/offers?ids="+strings.Join(parts, ","), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Offers, nil
}

func (c *Client) AcceptOffer(ctx context.Context, offerID uuid.UUID) (*OfferResult, error) {
	return c.offerAction(ctx, offerID, "accept")
}

func (c *Client) RejectOffer(ctx context.Context, offerID uuid.UUID) (*OfferResult, error) {
	return c.offerAction(ctx, offerID, "reject")
}

func (c *Client) WithdrawOffer(ctx context.Context, offerID uuid.UUID) (*OfferResult, error) {
	return c.offerAction(ctx, offerID, "withdraw")
}

func (c *Client) offerAction(ctx context.Context, offerID uuid.UUID, action string) (*OfferResult, error) {
	var result OfferResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/offers/"+offerID.String()+"/"+action, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Preference(ctx context.Context, key string) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/preferences/"+url.PathEscape(key), nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

func (c *Client) SetPreference(ctx context.Context, key, value string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/v1/preferences/"+url.PathEscape(key), map[string]string{"value": value}, nil)
}

func conversationPath(clientID uuid.UUID, suffix string) string {
	return "/api/v1/conversations/" + clientID.String() + "/" + suffix
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

// do выполняет запрос. Ответ с ошибкой возвращается как *errors.APIError с кодом
// статуса и текстом сервера; тело при этом все равно декодируется в out.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := apperrors.NewAPIError(strings.TrimSpace(string(data)), resp.StatusCode)
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func multipartBody(field string, files []File) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Data); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
