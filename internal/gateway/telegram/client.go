package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ms-invites/internal/gateway"
)

// MaxMediaGroup is the most photos one sendMediaGroup call accepts.
const MaxMediaGroup = 10

var ErrAPI = errors.New("telegram api error")

// APIError is a non-ok answer from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// Client talks to the Bot API. Sends are never retried: a retried
// sendMediaGroup would deliver the album twice.
type Client struct {
	Token string
	http  *resty.Client
}

// NewClient builds a client for baseURL. A nil httpClient gets a 30s timeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	var rc *resty.Client
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	} else {
		rc = resty.New().SetTimeout(30 * time.Second)
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")

	return &Client{Token: token, http: rc}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markdown bool) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if markdown {
		payload["parse_mode"] = "Markdown"
	}
	return c.callJSON(ctx, "sendMessage", payload)
}

// SetWebhook points Telegram at webhookURL. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header of every update.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	payload := map[string]any{"url": webhookURL}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.callJSON(ctx, "setWebhook", payload)
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo gateway.Media) error {
	fields := map[string]string{"chat_id": strconv.FormatInt(chatID, 10)}
	if photo.Caption != "" {
		fields["caption"] = photo.Caption
	}

	req := c.http.R().SetMultipartFormData(fields)
	attach(req, "photo", photo)
	return c.send(ctx, "sendPhoto", req)
}

// SendMediaGroup uploads photos as albums of at most MaxMediaGroup, in order.
// A trailing single photo goes through sendPhoto since albums need two.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, photos []gateway.Media) error {
	for start := 0; start < len(photos); start += MaxMediaGroup {
		end := min(start+MaxMediaGroup, len(photos))
		chunk := photos[start:end]

		var err error
		if len(chunk) == 1 {
			err = c.SendPhoto(ctx, chatID, chunk[0])
		} else {
			err = c.sendAlbum(ctx, chatID, chunk)
		}
		if err != nil {
			return fmt.Errorf("photos %d-%d: %w", start+1, end, err)
		}
	}
	return nil
}

func (c *Client) sendAlbum(ctx context.Context, chatID int64, photos []gateway.Media) error {
	req := c.http.R()

	media := make([]inputMediaPhoto, 0, len(photos))
	for i, p := range photos {
		field := fmt.Sprintf("photo%d", i)
		media = append(media, inputMediaPhoto{Type: "photo", Media: "attach://" + field, Caption: p.Caption})
		attach(req, field, p)
	}
	encoded, err := json.Marshal(media)
	if err != nil {
		return err
	}

	req.SetMultipartFormData(map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"media":   string(encoded),
	})
	return c.send(ctx, "sendMediaGroup", req)
}

func attach(req *resty.Request, field string, photo gateway.Media) {
	name := photo.Filename
	if name == "" {
		name = field + ".png"
	}
	req.SetMultipartField(field, name, "image/png", bytes.NewReader(photo.Image))
}

func (c *Client) callJSON(ctx context.Context, method string, payload any) error {
	req := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	return c.send(ctx, method, req)
}

func (c *Client) send(ctx context.Context, method string, req *resty.Request) error {
	resp, err := req.SetContext(ctx).Post("/bot" + c.Token + "/" + method)
	if err != nil {
		// the request URL carries the bot token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	var out apiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return fmt.Errorf("telegram %s: status %s: decode response: %w", method, resp.Status(), err)
	}
	if !out.OK {
		code := out.ErrorCode
		if code == 0 {
			code = resp.StatusCode()
		}
		return &APIError{Method: method, Code: code, Description: out.Description}
	}
	return nil
}
