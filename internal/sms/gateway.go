// Package sms relays membership notifications through the Telesom HTTP gateway.
package sms

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config carries gateway credentials.
type Config struct {
	APIURL     string
	Username   string
	Password   string
	SenderID   string
	PrivateKey string
	Timeout    time.Duration
}

// Complete reports whether every credential is present.
func (c Config) Complete() bool {
	return c.APIURL != "" && c.Username != "" && c.Password != "" && c.SenderID != "" && c.PrivateKey != ""
}

// Result is the outcome of one send. Failures are values, never errors, so
// callers can annotate the member instead of aborting a bulk action.
type Result struct {
	OK       bool
	Response string
}

// Gateway sends single messages to the Telesom API.
type Gateway struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewGateway builds a Gateway. A nil client gets one with the configured timeout.
func NewGateway(cfg Config, client *http.Client, logger *slog.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{cfg: cfg, client: client, logger: logger, now: time.Now}
}

// Send delivers message to phone.
func (g *Gateway) Send(ctx context.Context, phone, message string) Result {
	if !g.cfg.Complete() {
		g.logger.Error("sms gateway credentials are incomplete")
		return Result{Response: "Telesom configuration incomplete"}
	}
	if strings.TrimSpace(phone) == "" {
		return Result{Response: "Missing mobile number"}
	}

	encoded := quote(CleanMessage(message))
	mobile := CleanPhone(phone)
	hash := HashKey(g.cfg, mobile, encoded, g.now())
	url := fmt.Sprintf("%s/%s/%s/%s/%s", strings.TrimRight(g.cfg.APIURL, "/"), g.cfg.SenderID, encoded, mobile, hash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Response: fmt.Sprintf("Network Error: %v", err)}
	}
	g.logger.Info("sending sms", slog.String("mobile", mobile))
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("sms network error", slog.Any("error", err))
		return Result{Response: fmt.Sprintf("Network Error: %v", err)}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Result{Response: fmt.Sprintf("Network Error: %v", err)}
	}
	res := interpret(string(body))
	if !res.OK {
		g.logger.Warn("sms rejected by gateway", slog.String("mobile", mobile), slog.String("response", res.Response))
	}
	return res
}

func interpret(text string) Result {
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		if status, _ := payload["status"].(string); status == "error" {
			return Result{Response: text}
		}
		return Result{OK: true, Response: text}
	}
	lower := strings.ToLower(text)
	for _, marker := range []string{"success", "accepted", "0"} {
		if strings.Contains(lower, marker) {
			return Result{OK: true, Response: text}
		}
	}
	return Result{Response: text}
}

const reservedChars = "/@$%^&*()={}|<>~`\"#"

// CleanMessage replaces characters the gateway path cannot carry with ':'.
func CleanMessage(message string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedChars, r) {
			return ':'
		}
		return r
	}, message)
}

// CleanPhone drops spaces and the leading plus.
func CleanPhone(phone string) string {
	return strings.NewReplacer(" ", "", "+", "").Replace(phone)
}

// HashKey computes the upper-hex MD5 signature the gateway expects.
func HashKey(cfg Config, mobile, encodedMessage string, day time.Time) string {
	input := strings.Join([]string{
		cfg.Username,
		cfg.Password,
		mobile,
		encodedMessage,
		cfg.SenderID,
		day.Format("02/01/2006"),
		cfg.PrivateKey,
	}, "|")
	sum := md5.Sum([]byte(input))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// quote percent-encodes every byte outside the RFC 3986 unreserved set and '/'.
// The gateway signs the message exactly as encoded this way, which differs from
// url.PathEscape for characters such as ':' and '+'.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~' || c == '/':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
